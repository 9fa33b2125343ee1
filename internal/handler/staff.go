package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/middleware"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/repository"
	"github.com/opencampus/cms-api/internal/utils"
)

// StaffHandler manages staff profiles.  The public faculty listing is the
// only unauthenticated read.
type StaffHandler struct {
	Staff  *repository.StaffRepo
	Argon2 utils.Argon2Params
}

func NewStaffHandler(s *repository.StaffRepo, p utils.Argon2Params) *StaffHandler {
	return &StaffHandler{Staff: s, Argon2: p}
}

type createStaffReq struct {
	Email        string          `json:"email_id"`
	Password     string          `json:"password"`
	ContactNo    string          `json:"contact_no"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Position     string          `json:"position"`
	Education    json.RawMessage `json:"education"`
	Experience   json.RawMessage `json:"experience"`
	Activity     json.RawMessage `json:"activity"`
	OtherDetails json.RawMessage `json:"other_details"`
	IsPublic     bool            `json:"is_public"`
}

type staffResp struct {
	ID           string          `json:"id"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Email        string          `json:"email_id"`
	ContactNo    string          `json:"contact_no"`
	Position     string          `json:"position"`
	Education    json.RawMessage `json:"education,omitempty"`
	Experience   json.RawMessage `json:"experience,omitempty"`
	Activity     json.RawMessage `json:"activity,omitempty"`
	OtherDetails json.RawMessage `json:"other_details,omitempty"`
	IsPublic     bool            `json:"is_public"`
	DepartmentID *string         `json:"department_id"`
}

func toStaffResp(s model.Staff) staffResp {
	var dept *string
	if s.DepartmentID != nil {
		d := s.DepartmentID.String()
		dept = &d
	}
	return staffResp{
		ID:           s.ID.String(),
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Email:        s.Email,
		ContactNo:    s.ContactNo,
		Position:     s.Position,
		Education:    s.Education,
		Experience:   s.Experience,
		Activity:     s.Activity,
		OtherDetails: s.OtherDetails,
		IsPublic:     s.IsPublic,
		DepartmentID: dept,
	}
}

// Create registers a staff member and its backing account in one
// transaction.
func (h *StaffHandler) Create(c echo.Context) error {
	var req createStaffReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body",
			"email_id, password, first_name and last_name are required")
	}

	hash, err := utils.HashPassword(req.Password, h.Argon2)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := h.Staff.Create(ctx, repository.NewStaff{
		Email:        req.Email,
		PasswordHash: hash,
		ContactNo:    req.ContactNo,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Position:     req.Position,
		Education:    req.Education,
		Experience:   req.Experience,
		Activity:     req.Activity,
		OtherDetails: req.OtherDetails,
		IsPublic:     req.IsPublic,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String()})
}

// Get returns one staff member.  Self-scoped callers may only read their
// own profile.
func (h *StaffHandler) Get(c echo.Context) error {
	staffID, err := uuid.Parse(c.Param("staff_id"))
	if err != nil {
		return apierr.NotFound("staff", "staff_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != staffID {
		return apierr.NotEnoughPermissions()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Staff.GetByID(ctx, staffID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStaffResp(s))
}

// List returns a page of staff members.
func (h *StaffHandler) List(c echo.Context) error {
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	staff, err := h.Staff.GetAll(ctx, false, limit, offset)
	if err != nil {
		return err
	}
	out := make([]staffResp, 0, len(staff))
	for _, s := range staff {
		out = append(out, toStaffResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// ListPublic is the unauthenticated faculty directory: only members marked
// public appear, and contact details are withheld.
func (h *StaffHandler) ListPublic(c echo.Context) error {
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	staff, err := h.Staff.GetAll(ctx, true, limit, offset)
	if err != nil {
		return err
	}
	type publicStaff struct {
		ID        string          `json:"id"`
		FirstName string          `json:"first_name"`
		LastName  string          `json:"last_name"`
		Position  string          `json:"position"`
		Education json.RawMessage `json:"education,omitempty"`
	}
	out := make([]publicStaff, 0, len(staff))
	for _, s := range staff {
		out = append(out, publicStaff{
			ID:        s.ID.String(),
			FirstName: s.FirstName,
			LastName:  s.LastName,
			Position:  s.Position,
			Education: s.Education,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type updateStaffReq struct {
	FirstName    *string         `json:"first_name"`
	LastName     *string         `json:"last_name"`
	Position     *string         `json:"position"`
	Education    json.RawMessage `json:"education"`
	Experience   json.RawMessage `json:"experience"`
	Activity     json.RawMessage `json:"activity"`
	OtherDetails json.RawMessage `json:"other_details"`
	IsPublic     *bool           `json:"is_public"`
}

// Update patches the staff profile.
func (h *StaffHandler) Update(c echo.Context) error {
	staffID, err := uuid.Parse(c.Param("staff_id"))
	if err != nil {
		return apierr.NotFound("staff", "staff_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != staffID {
		return apierr.NotEnoughPermissions()
	}

	var req updateStaffReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Staff.Update(ctx, staffID, repository.StaffPatch{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Position:     req.Position,
		Education:    req.Education,
		Experience:   req.Experience,
		Activity:     req.Activity,
		OtherDetails: req.OtherDetails,
		IsPublic:     req.IsPublic,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type assignDepartmentReq struct {
	DepartmentID string `json:"department_id"`
}

// AssignDepartment moves the staff member into a department.
func (h *StaffHandler) AssignDepartment(c echo.Context) error {
	staffID, err := uuid.Parse(c.Param("staff_id"))
	if err != nil {
		return apierr.NotFound("staff", "staff_id")
	}
	var req assignDepartmentReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	departmentID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
			With("parameter", "department_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Staff.AssignDepartment(ctx, staffID, departmentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete soft-deletes the staff profile.
func (h *StaffHandler) Delete(c echo.Context) error {
	staffID, err := uuid.Parse(c.Param("staff_id"))
	if err != nil {
		return apierr.NotFound("staff", "staff_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Staff.Delete(ctx, staffID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
