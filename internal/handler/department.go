package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/repository"
)

// DepartmentHandler manages departments within schools.
type DepartmentHandler struct {
	Departments *repository.DepartmentRepo
	Staff       *repository.StaffRepo
}

func NewDepartmentHandler(d *repository.DepartmentRepo, st *repository.StaffRepo) *DepartmentHandler {
	return &DepartmentHandler{Departments: d, Staff: st}
}

type departmentReq struct {
	Name      string          `json:"name"`
	SchoolID  string          `json:"school_id"`
	HeadID    string          `json:"head_id"`
	ExtraInfo json.RawMessage `json:"extra_info"`
}

type departmentResp struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	SchoolID  string          `json:"school_id"`
	HeadID    string          `json:"head_id"`
	ExtraInfo json.RawMessage `json:"extra_info,omitempty"`
}

func toDepartmentResp(d model.Department) departmentResp {
	return departmentResp{
		ID:        d.ID.String(),
		Name:      d.Name,
		SchoolID:  d.SchoolID.String(),
		HeadID:    d.HeadID.String(),
		ExtraInfo: d.ExtraInfo,
	}
}

// Create adds a department under a school.
func (h *DepartmentHandler) Create(c echo.Context) error {
	var req departmentReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.Name == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body", "name is required")
	}
	schoolID, err := uuid.Parse(req.SchoolID)
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
			With("parameter", "school_id")
	}
	headID, err := uuid.Parse(req.HeadID)
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
			With("parameter", "head_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Staff.Exists(ctx, headID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("staff", "head_id")
	}

	id, err := h.Departments.Create(ctx, req.Name, schoolID, headID, req.ExtraInfo)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String()})
}

// Get returns one department.
func (h *DepartmentHandler) Get(c echo.Context) error {
	departmentID, err := uuid.Parse(c.Param("department_id"))
	if err != nil {
		return apierr.NotFound("department", "department_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Departments.GetByID(ctx, departmentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDepartmentResp(d))
}

// List returns departments, optionally filtered by ?school_id=.
func (h *DepartmentHandler) List(c echo.Context) error {
	var schoolID *uuid.UUID
	if v := c.QueryParam("school_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
				With("parameter", "school_id")
		}
		schoolID = &id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	departments, err := h.Departments.GetAll(ctx, schoolID)
	if err != nil {
		return err
	}
	out := make([]departmentResp, 0, len(departments))
	for _, d := range departments {
		out = append(out, toDepartmentResp(d))
	}
	return c.JSON(http.StatusOK, out)
}

type updateDepartmentReq struct {
	Name      *string         `json:"name"`
	SchoolID  *string         `json:"school_id"`
	HeadID    *string         `json:"head_id"`
	ExtraInfo json.RawMessage `json:"extra_info"`
}

// Update patches the department.
func (h *DepartmentHandler) Update(c echo.Context) error {
	departmentID, err := uuid.Parse(c.Param("department_id"))
	if err != nil {
		return apierr.NotFound("department", "department_id")
	}
	var req updateDepartmentReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	schoolID, err := parseOptionalUUID(req.SchoolID, "school_id")
	if err != nil {
		return err
	}
	headID, err := parseOptionalUUID(req.HeadID, "head_id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Departments.Update(ctx, departmentID, repository.DepartmentPatch{
		Name:      req.Name,
		SchoolID:  schoolID,
		HeadID:    headID,
		ExtraInfo: req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes the department.
func (h *DepartmentHandler) Delete(c echo.Context) error {
	departmentID, err := uuid.Parse(c.Param("department_id"))
	if err != nil {
		return apierr.NotFound("department", "department_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Departments.Delete(ctx, departmentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
