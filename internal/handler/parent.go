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

// ParentHandler manages guardian records and their student links.
type ParentHandler struct {
	Parents *repository.ParentRepo
}

func NewParentHandler(p *repository.ParentRepo) *ParentHandler {
	return &ParentHandler{Parents: p}
}

type parentReq struct {
	FathersName      string          `json:"fathers_name"`
	MothersName      string          `json:"mothers_name"`
	FathersEmail     string          `json:"fathers_email_id"`
	MothersEmail     string          `json:"mothers_email_id"`
	FathersContactNo string          `json:"fathers_contact_no"`
	MothersContactNo string          `json:"mothers_contact_no"`
	Address          string          `json:"address"`
	ExtraInfo        json.RawMessage `json:"extra_info"`
}

type parentResp struct {
	ID               string          `json:"id"`
	FathersName      string          `json:"fathers_name"`
	MothersName      string          `json:"mothers_name"`
	FathersEmail     string          `json:"fathers_email_id"`
	MothersEmail     string          `json:"mothers_email_id"`
	FathersContactNo string          `json:"fathers_contact_no"`
	MothersContactNo string          `json:"mothers_contact_no"`
	Address          string          `json:"address"`
	ExtraInfo        json.RawMessage `json:"extra_info,omitempty"`
}

func toParentResp(p model.Parent) parentResp {
	return parentResp{
		ID:               p.ID.String(),
		FathersName:      p.FathersName,
		MothersName:      p.MothersName,
		FathersEmail:     p.FathersEmail,
		MothersEmail:     p.MothersEmail,
		FathersContactNo: p.FathersContactNo,
		MothersContactNo: p.MothersContactNo,
		Address:          p.Address,
		ExtraInfo:        p.ExtraInfo,
	}
}

// Create adds a parent record.
func (h *ParentHandler) Create(c echo.Context) error {
	var req parentReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.FathersName == "" && req.MothersName == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body",
			"at least one of fathers_name or mothers_name is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Parents.Create(ctx, model.Parent{
		FathersName:      req.FathersName,
		MothersName:      req.MothersName,
		FathersEmail:     req.FathersEmail,
		MothersEmail:     req.MothersEmail,
		FathersContactNo: req.FathersContactNo,
		MothersContactNo: req.MothersContactNo,
		Address:          req.Address,
		ExtraInfo:        req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String()})
}

// Get returns one parent record.
func (h *ParentHandler) Get(c echo.Context) error {
	parentID, err := uuid.Parse(c.Param("parent_id"))
	if err != nil {
		return apierr.NotFound("parent", "parent_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Parents.GetByID(ctx, parentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toParentResp(p))
}

// List returns a page of parent records.
func (h *ParentHandler) List(c echo.Context) error {
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	parents, err := h.Parents.GetAll(ctx, limit, offset)
	if err != nil {
		return err
	}
	out := make([]parentResp, 0, len(parents))
	for _, p := range parents {
		out = append(out, toParentResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

type updateParentReq struct {
	FathersName      *string         `json:"fathers_name"`
	MothersName      *string         `json:"mothers_name"`
	FathersEmail     *string         `json:"fathers_email_id"`
	MothersEmail     *string         `json:"mothers_email_id"`
	FathersContactNo *string         `json:"fathers_contact_no"`
	MothersContactNo *string         `json:"mothers_contact_no"`
	Address          *string         `json:"address"`
	ExtraInfo        json.RawMessage `json:"extra_info"`
}

// Update patches the parent record.
func (h *ParentHandler) Update(c echo.Context) error {
	parentID, err := uuid.Parse(c.Param("parent_id"))
	if err != nil {
		return apierr.NotFound("parent", "parent_id")
	}
	var req updateParentReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Parents.Update(ctx, parentID, repository.ParentPatch{
		FathersName:      req.FathersName,
		MothersName:      req.MothersName,
		FathersEmail:     req.FathersEmail,
		MothersEmail:     req.MothersEmail,
		FathersContactNo: req.FathersContactNo,
		MothersContactNo: req.MothersContactNo,
		Address:          req.Address,
		ExtraInfo:        req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete soft-deletes the parent record.
func (h *ParentHandler) Delete(c echo.Context) error {
	parentID, err := uuid.Parse(c.Param("parent_id"))
	if err != nil {
		return apierr.NotFound("parent", "parent_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Parents.Delete(ctx, parentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type linkStudentReq struct {
	StudentID string `json:"student_id"`
}

// LinkStudent associates a student with the parent.
func (h *ParentHandler) LinkStudent(c echo.Context) error {
	parentID, err := uuid.Parse(c.Param("parent_id"))
	if err != nil {
		return apierr.NotFound("parent", "parent_id")
	}
	var req linkStudentReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
			With("parameter", "student_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Parents.LinkStudent(ctx, parentID, studentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UnlinkStudent removes the association.
func (h *ParentHandler) UnlinkStudent(c echo.Context) error {
	parentID, err := uuid.Parse(c.Param("parent_id"))
	if err != nil {
		return apierr.NotFound("parent", "parent_id")
	}
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		return apierr.NotFound("student", "student_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Parents.UnlinkStudent(ctx, parentID, studentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Students lists ids of students linked to the parent.
func (h *ParentHandler) Students(c echo.Context) error {
	parentID, err := uuid.Parse(c.Param("parent_id"))
	if err != nil {
		return apierr.NotFound("parent", "parent_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ids, err := h.Parents.Students(ctx, parentID)
	if err != nil {
		return err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return c.JSON(http.StatusOK, echo.Map{"students": out})
}
