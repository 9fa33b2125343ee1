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

// ProgramHandler manages degree programs.
type ProgramHandler struct {
	Programs *repository.ProgramRepo
}

func NewProgramHandler(p *repository.ProgramRepo) *ProgramHandler {
	return &ProgramHandler{Programs: p}
}

type programReq struct {
	Name         string          `json:"name"`
	DegreeName   string          `json:"degree_name"`
	DegreeType   string          `json:"degree_type"`
	DepartmentID string          `json:"department_id"`
	ExtraInfo    json.RawMessage `json:"extra_info"`
}

type programResp struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	DegreeName     string          `json:"degree_name"`
	DegreeType     string          `json:"degree_type"`
	DepartmentID   string          `json:"department_id"`
	DepartmentName string          `json:"department_name"`
	ExtraInfo      json.RawMessage `json:"extra_info,omitempty"`
}

func toProgramResp(p model.Program) programResp {
	return programResp{
		ID:             p.ID.String(),
		Name:           p.Name,
		DegreeName:     p.DegreeName,
		DegreeType:     p.DegreeType,
		DepartmentID:   p.DepartmentID.String(),
		DepartmentName: p.DepartmentName,
		ExtraInfo:      p.ExtraInfo,
	}
}

// Create adds a program under a department.
func (h *ProgramHandler) Create(c echo.Context) error {
	var req programReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.Name == "" || req.DegreeName == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body", "name and degree_name are required")
	}
	departmentID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
			With("parameter", "department_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Programs.Create(ctx, repository.NewProgram{
		Name:         req.Name,
		DegreeName:   req.DegreeName,
		DegreeType:   req.DegreeType,
		DepartmentID: departmentID,
		ExtraInfo:    req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String()})
}

// Get returns one program.
func (h *ProgramHandler) Get(c echo.Context) error {
	programID, err := uuid.Parse(c.Param("program_id"))
	if err != nil {
		return apierr.NotFound("program", "program_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Programs.GetByID(ctx, programID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProgramResp(p))
}

// List returns programs, optionally filtered by ?department_id=.
func (h *ProgramHandler) List(c echo.Context) error {
	var departmentID *uuid.UUID
	if v := c.QueryParam("department_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
				With("parameter", "department_id")
		}
		departmentID = &id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	programs, err := h.Programs.GetAll(ctx, departmentID)
	if err != nil {
		return err
	}
	out := make([]programResp, 0, len(programs))
	for _, p := range programs {
		out = append(out, toProgramResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

type updateProgramReq struct {
	Name         *string         `json:"name"`
	DegreeName   *string         `json:"degree_name"`
	DegreeType   *string         `json:"degree_type"`
	DepartmentID *string         `json:"department_id"`
	ExtraInfo    json.RawMessage `json:"extra_info"`
}

// Update patches the program.
func (h *ProgramHandler) Update(c echo.Context) error {
	programID, err := uuid.Parse(c.Param("program_id"))
	if err != nil {
		return apierr.NotFound("program", "program_id")
	}
	var req updateProgramReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	departmentID, err := parseOptionalUUID(req.DepartmentID, "department_id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Programs.Update(ctx, programID, repository.ProgramPatch{
		Name:         req.Name,
		DegreeName:   req.DegreeName,
		DegreeType:   req.DegreeType,
		DepartmentID: departmentID,
		ExtraInfo:    req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes the program.
func (h *ProgramHandler) Delete(c echo.Context) error {
	programID, err := uuid.Parse(c.Param("program_id"))
	if err != nil {
		return apierr.NotFound("program", "program_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Programs.Delete(ctx, programID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
