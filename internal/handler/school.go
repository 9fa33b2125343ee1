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

// SchoolHandler manages top-level academic units.
type SchoolHandler struct {
	Schools *repository.SchoolRepo
	Staff   *repository.StaffRepo
}

func NewSchoolHandler(s *repository.SchoolRepo, st *repository.StaffRepo) *SchoolHandler {
	return &SchoolHandler{Schools: s, Staff: st}
}

type schoolReq struct {
	Name      string          `json:"name"`
	DeanID    string          `json:"dean_id"`
	ExtraInfo json.RawMessage `json:"extra_info"`
}

type schoolResp struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	DeanID    string          `json:"dean_id"`
	ExtraInfo json.RawMessage `json:"extra_info,omitempty"`
}

func toSchoolResp(s model.School) schoolResp {
	return schoolResp{
		ID:        s.ID.String(),
		Name:      s.Name,
		DeanID:    s.DeanID.String(),
		ExtraInfo: s.ExtraInfo,
	}
}

// Create adds a school.  The dean is pre-checked so a bad id yields a 404
// instead of a raw constraint error.
func (h *SchoolHandler) Create(c echo.Context) error {
	var req schoolReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.Name == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body", "name is required")
	}
	deanID, err := uuid.Parse(req.DeanID)
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
			With("parameter", "dean_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Staff.Exists(ctx, deanID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("staff", "dean_id")
	}

	id, err := h.Schools.Create(ctx, req.Name, deanID, req.ExtraInfo)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String()})
}

// Get returns one school.
func (h *SchoolHandler) Get(c echo.Context) error {
	schoolID, err := uuid.Parse(c.Param("school_id"))
	if err != nil {
		return apierr.NotFound("school", "school_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Schools.GetByID(ctx, schoolID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSchoolResp(s))
}

// List returns all schools.
func (h *SchoolHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	schools, err := h.Schools.GetAll(ctx)
	if err != nil {
		return err
	}
	out := make([]schoolResp, 0, len(schools))
	for _, s := range schools {
		out = append(out, toSchoolResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

type updateSchoolReq struct {
	Name      *string         `json:"name"`
	DeanID    *string         `json:"dean_id"`
	ExtraInfo json.RawMessage `json:"extra_info"`
}

// Update patches the school.
func (h *SchoolHandler) Update(c echo.Context) error {
	schoolID, err := uuid.Parse(c.Param("school_id"))
	if err != nil {
		return apierr.NotFound("school", "school_id")
	}
	var req updateSchoolReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	deanID, err := parseOptionalUUID(req.DeanID, "dean_id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Schools.Update(ctx, schoolID, repository.SchoolPatch{
		Name:      req.Name,
		DeanID:    deanID,
		ExtraInfo: req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes the school.
func (h *SchoolHandler) Delete(c echo.Context) error {
	schoolID, err := uuid.Parse(c.Param("school_id"))
	if err != nil {
		return apierr.NotFound("school", "school_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Schools.Delete(ctx, schoolID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
