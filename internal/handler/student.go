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

// StudentHandler manages student profiles and enrollments.
type StudentHandler struct {
	Students *repository.StudentRepo
	Argon2   utils.Argon2Params
}

func NewStudentHandler(s *repository.StudentRepo, p utils.Argon2Params) *StudentHandler {
	return &StudentHandler{Students: s, Argon2: p}
}

type createStudentReq struct {
	Email       string          `json:"email_id"`
	Password    string          `json:"password"`
	ContactNo   string          `json:"contact_no"`
	FirstName   string          `json:"first_name"`
	MiddleName  string          `json:"middle_name"`
	LastName    string          `json:"last_name"`
	DateOfBirth string          `json:"date_of_birth"`
	Gender      string          `json:"gender"`
	Address     string          `json:"address"`
	AadhaarNo   string          `json:"aadhaar_no"`
	ApaarID     string          `json:"apaar_id"`
	ExtraInfo   json.RawMessage `json:"extra_info"`
}

type studentResp struct {
	ID          string          `json:"id"`
	FirstName   string          `json:"first_name"`
	MiddleName  string          `json:"middle_name"`
	LastName    string          `json:"last_name"`
	DateOfBirth string          `json:"date_of_birth"`
	Gender      string          `json:"gender"`
	Address     string          `json:"address"`
	Email       string          `json:"email_id"`
	ContactNo   string          `json:"contact_no"`
	AadhaarNo   string          `json:"aadhaar_no"`
	ApaarID     string          `json:"apaar_id"`
	ExtraInfo   json.RawMessage `json:"extra_info,omitempty"`
}

func toStudentResp(s model.Student) studentResp {
	return studentResp{
		ID:          s.ID.String(),
		FirstName:   s.FirstName,
		MiddleName:  s.MiddleName,
		LastName:    s.LastName,
		DateOfBirth: s.DateOfBirth.Format("2006-01-02"),
		Gender:      s.Gender,
		Address:     s.Address,
		Email:       s.Email,
		ContactNo:   s.ContactNo,
		AadhaarNo:   s.AadhaarNo,
		ApaarID:     s.ApaarID,
		ExtraInfo:   s.ExtraInfo,
	}
}

// Create registers a student and its backing account in one transaction.
func (h *StudentHandler) Create(c echo.Context) error {
	var req createStudentReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body",
			"email_id, password, first_name and last_name are required")
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body",
			"date_of_birth must be YYYY-MM-DD")
	}

	hash, err := utils.HashPassword(req.Password, h.Argon2)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := h.Students.Create(ctx, repository.NewStudent{
		Email:        req.Email,
		PasswordHash: hash,
		ContactNo:    req.ContactNo,
		FirstName:    req.FirstName,
		MiddleName:   req.MiddleName,
		LastName:     req.LastName,
		DateOfBirth:  dob,
		Gender:       req.Gender,
		Address:      req.Address,
		AadhaarNo:    req.AadhaarNo,
		ApaarID:      req.ApaarID,
		ExtraInfo:    req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String()})
}

// Get returns one student.  Self-scoped callers may only read their own
// profile.
func (h *StudentHandler) Get(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		return apierr.NotFound("student", "student_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != studentID {
		return apierr.NotEnoughPermissions()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Students.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStudentResp(s))
}

// List returns a page of students.
func (h *StudentHandler) List(c echo.Context) error {
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	students, err := h.Students.GetAll(ctx, limit, offset)
	if err != nil {
		return err
	}
	out := make([]studentResp, 0, len(students))
	for _, s := range students {
		out = append(out, toStudentResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

type updateStudentReq struct {
	FirstName   *string         `json:"first_name"`
	MiddleName  *string         `json:"middle_name"`
	LastName    *string         `json:"last_name"`
	DateOfBirth *string         `json:"date_of_birth"`
	Gender      *string         `json:"gender"`
	Address     *string         `json:"address"`
	AadhaarNo   *string         `json:"aadhaar_no"`
	ApaarID     *string         `json:"apaar_id"`
	ExtraInfo   json.RawMessage `json:"extra_info"`
}

// Update patches the student profile.
func (h *StudentHandler) Update(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		return apierr.NotFound("student", "student_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != studentID {
		return apierr.NotEnoughPermissions()
	}

	var req updateStudentReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	var dob *time.Time
	if req.DateOfBirth != nil {
		d, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return apierr.New(http.StatusBadRequest, "invalid_body",
				"date_of_birth must be YYYY-MM-DD")
		}
		dob = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Students.Update(ctx, studentID, repository.StudentPatch{
		FirstName:   req.FirstName,
		MiddleName:  req.MiddleName,
		LastName:    req.LastName,
		DateOfBirth: dob,
		Gender:      req.Gender,
		Address:     req.Address,
		AadhaarNo:   req.AadhaarNo,
		ApaarID:     req.ApaarID,
		ExtraInfo:   req.ExtraInfo,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete soft-deletes the student profile.
func (h *StudentHandler) Delete(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		return apierr.NotFound("student", "student_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Students.Delete(ctx, studentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type enrollReq struct {
	BatchID string `json:"batch_id"`
}

// Enroll registers the student into a batch.
func (h *StudentHandler) Enroll(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		return apierr.NotFound("student", "student_id")
	}
	var req enrollReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
			With("parameter", "batch_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	no, err := h.Students.Enroll(ctx, studentID, batchID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"enrollment_no": no})
}

type enrollmentResp struct {
	EnrollmentNo string `json:"enrollment_no"`
	BatchID      string `json:"batch_id"`
	BatchName    string `json:"batch_name"`
	BatchCode    string `json:"batch_code"`
	Year         int    `json:"year"`
	ProgramName  string `json:"program_name"`
}

// Enrollments lists the student's enrollments, most recent year first.
func (h *StudentHandler) Enrollments(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		return apierr.NotFound("student", "student_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != studentID {
		return apierr.NotEnoughPermissions()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	enrollments, err := h.Students.Enrollments(ctx, studentID)
	if err != nil {
		return err
	}
	out := make([]enrollmentResp, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, enrollmentResp{
			EnrollmentNo: e.EnrollmentNo,
			BatchID:      e.BatchID.String(),
			BatchName:    e.BatchName,
			BatchCode:    e.BatchCode,
			Year:         e.Year,
			ProgramName:  e.ProgramName,
		})
	}
	return c.JSON(http.StatusOK, out)
}
