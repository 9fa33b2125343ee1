package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/repository"
)

// PermissionHandler manages the permission catalog.
type PermissionHandler struct {
	Permissions *repository.PermissionRepo
}

func NewPermissionHandler(p *repository.PermissionRepo) *PermissionHandler {
	return &PermissionHandler{Permissions: p}
}

type createPermissionReq struct {
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// Create adds a permission to the catalog.
func (h *PermissionHandler) Create(c echo.Context) error {
	var req createPermissionReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.Slug == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body", "slug is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Permissions.Create(ctx, req.Slug, req.Description); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"slug": req.Slug})
}

// List returns the full catalog.
func (h *PermissionHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	perms, err := h.Permissions.GetAll(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, perms)
}

// Delete removes a permission.  Fails with a conflict while any user still
// holds the grant.
func (h *PermissionHandler) Delete(c echo.Context) error {
	slug := c.Param("slug")
	if slug == "" {
		return apierr.PermissionNotFound()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Permissions.Delete(ctx, slug); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
