package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/repository"
)

// BatchHandler manages program cohorts.
type BatchHandler struct {
	Batches *repository.BatchRepo
}

func NewBatchHandler(b *repository.BatchRepo) *BatchHandler {
	return &BatchHandler{Batches: b}
}

type batchReq struct {
	Code      string          `json:"code"`
	ProgramID string          `json:"program_id"`
	Name      string          `json:"name"`
	Year      int             `json:"year"`
	ExtraInfo json.RawMessage `json:"extra_info"`
}

type batchResp struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	ProgramID   string          `json:"program_id"`
	ProgramName string          `json:"program_name"`
	Name        string          `json:"name"`
	Year        int             `json:"year"`
	ExtraInfo   json.RawMessage `json:"extra_info,omitempty"`
}

func toBatchResp(b model.Batch) batchResp {
	return batchResp{
		ID:          b.ID.String(),
		Code:        b.Code,
		ProgramID:   b.ProgramID.String(),
		ProgramName: b.ProgramName,
		Name:        b.Name,
		Year:        b.Year,
		ExtraInfo:   b.ExtraInfo,
	}
}

// Create adds a batch under a program.
func (h *BatchHandler) Create(c echo.Context) error {
	var req batchReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.Code == "" || req.Year == 0 {
		return apierr.New(http.StatusBadRequest, "invalid_body", "code and year are required")
	}
	programID, err := uuid.Parse(req.ProgramID)
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
			With("parameter", "program_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Batches.Create(ctx, repository.NewBatch{
		Code:      req.Code,
		ProgramID: programID,
		Name:      req.Name,
		Year:      req.Year,
		ExtraInfo: req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String()})
}

// Get returns one batch.
func (h *BatchHandler) Get(c echo.Context) error {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		return apierr.NotFound("batch", "batch_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBatchResp(b))
}

// List returns batches, optionally filtered by ?program_id= and ?year=.
func (h *BatchHandler) List(c echo.Context) error {
	var programID *uuid.UUID
	if v := c.QueryParam("program_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
				With("parameter", "program_id")
		}
		programID = &id
	}
	var year *int
	if v := c.QueryParam("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return apierr.New(http.StatusBadRequest, "invalid_body", "year must be an integer")
		}
		year = &y
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	batches, err := h.Batches.GetAll(ctx, programID, year)
	if err != nil {
		return err
	}
	out := make([]batchResp, 0, len(batches))
	for _, b := range batches {
		out = append(out, toBatchResp(b))
	}
	return c.JSON(http.StatusOK, out)
}

type updateBatchReq struct {
	Code      *string         `json:"code"`
	ProgramID *string         `json:"program_id"`
	Name      *string         `json:"name"`
	Year      *int            `json:"year"`
	ExtraInfo json.RawMessage `json:"extra_info"`
}

// Update patches the batch.
func (h *BatchHandler) Update(c echo.Context) error {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		return apierr.NotFound("batch", "batch_id")
	}
	var req updateBatchReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	programID, err := parseOptionalUUID(req.ProgramID, "program_id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Batches.Update(ctx, batchID, repository.BatchPatch{
		Code:      req.Code,
		ProgramID: programID,
		Name:      req.Name,
		Year:      req.Year,
		ExtraInfo: req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes the batch.
func (h *BatchHandler) Delete(c echo.Context) error {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		return apierr.NotFound("batch", "batch_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Batches.Delete(ctx, batchID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Students lists the students enrolled in the batch.
func (h *BatchHandler) Students(c echo.Context) error {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		return apierr.NotFound("batch", "batch_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	students, err := h.Batches.EnrolledStudents(ctx, batchID)
	if err != nil {
		return err
	}
	type enrolled struct {
		StudentID    string `json:"student_id"`
		EnrollmentNo string `json:"enrollment_no"`
		FirstName    string `json:"first_name"`
		MiddleName   string `json:"middle_name"`
		LastName     string `json:"last_name"`
	}
	out := make([]enrolled, 0, len(students))
	for _, s := range students {
		out = append(out, enrolled{
			StudentID:    s.ID.String(),
			EnrollmentNo: s.EnrollmentNo,
			FirstName:    s.FirstName,
			MiddleName:   s.MiddleName,
			LastName:     s.LastName,
		})
	}
	return c.JSON(http.StatusOK, out)
}
