package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/middleware"
	"github.com/opencampus/cms-api/internal/repository"
	"github.com/opencampus/cms-api/internal/utils"
)

// UserHandler exposes account management and permission grants.
type UserHandler struct {
	Users    *repository.UserRepo
	Sessions *repository.SessionRepo
	Argon2   utils.Argon2Params
}

func NewUserHandler(u *repository.UserRepo, s *repository.SessionRepo, p utils.Argon2Params) *UserHandler {
	return &UserHandler{Users: u, Sessions: s, Argon2: p}
}

type createUserReq struct {
	Email     string  `json:"email_id"`
	Password  string  `json:"password"`
	ContactNo string  `json:"contact_no"`
	Profile   *string `json:"profile_image"`
}

type updateUserReq struct {
	ContactNo *string `json:"contact_no"`
	Profile   *string `json:"profile_image"`
}

type changePasswordReq struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

type grantReq struct {
	Permissions []string `json:"permissions"`
}

// Create registers a bare user account with no profile attached.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.Email == "" || req.Password == "" || req.ContactNo == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body",
			"email_id, password and contact_no are required")
	}

	hash, err := utils.HashPassword(req.Password, h.Argon2)
	if err != nil {
		return err
	}
	profile, err := parseOptionalUUID(req.Profile, "profile_image")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Users.Create(ctx, req.Email, hash, req.ContactNo, profile)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String()})
}

// Get returns the target user.  Self-scoped callers may only read
// themselves.
func (h *UserHandler) Get(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apierr.UserNotFound("user_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != userID {
		return apierr.NotEnoughPermissions()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	var img *string
	if u.ProfileImage != nil {
		s := u.ProfileImage.String()
		img = &s
	}
	return c.JSON(http.StatusOK, userPart{
		ID:           u.ID.String(),
		Email:        u.Email,
		ContactNo:    u.ContactNo,
		ProfileImage: img,
	})
}

// Update patches contact number and profile image.
func (h *UserHandler) Update(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apierr.UserNotFound("user_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != userID {
		return apierr.NotEnoughPermissions()
	}

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	profile, err := parseOptionalUUID(req.Profile, "profile_image")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Update(ctx, userID, req.ContactNo, profile); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword swaps the caller's credential after verifying the current
// one, then terminates every other session the account holds.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apierr.CredentialsNotFound()
	}

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.New == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body", "new_password is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		return err
	}
	match, err := utils.VerifyPassword(req.Current, u.PasswordHash)
	if err != nil {
		return err
	}
	if !match {
		return apierr.PasswordIncorrect()
	}

	hash, err := utils.HashPassword(req.New, h.Argon2)
	if err != nil {
		return err
	}
	if err := h.Users.UpdatePassword(ctx, id.UserID, hash); err != nil {
		return err
	}
	if err := h.Sessions.TerminateAllForUser(ctx, id.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete soft-deletes the account and revokes its sessions.
func (h *UserHandler) Delete(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apierr.UserNotFound("user_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, userID); err != nil {
		return err
	}
	if err := h.Sessions.TerminateAllForUser(ctx, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Permissions returns the user's current grants.
func (h *UserHandler) Permissions(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apierr.UserNotFound("user_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != userID {
		return apierr.NotEnoughPermissions()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	perms, err := h.Users.GetPermissions(ctx, userID)
	if err != nil {
		return err
	}
	if perms == nil {
		perms = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": perms})
}

// Grant adds permissions to the user.
func (h *UserHandler) Grant(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apierr.UserNotFound("user_id")
	}
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if len(req.Permissions) == 0 {
		return apierr.New(http.StatusBadRequest, "invalid_body", "permissions must be non-empty")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.GrantPermissions(ctx, userID, req.Permissions); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Revoke removes permissions from the user.  Takes effect on the user's
// very next request since nothing caches permission sets.
func (h *UserHandler) Revoke(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apierr.UserNotFound("user_id")
	}
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if len(req.Permissions) == 0 {
		return apierr.New(http.StatusBadRequest, "invalid_body", "permissions must be non-empty")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.RevokePermissions(ctx, userID, req.Permissions); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func parseOptionalUUID(s *string, field string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_body", "Invalid UUID value").
			With("parameter", field)
	}
	return &id, nil
}
