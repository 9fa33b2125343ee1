// Package setup seeds the permission catalog and the bootstrap admin
// account at startup.  Every step is idempotent so restarting the server
// never duplicates rows or rewrites existing credentials.
package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/config"
	"github.com/opencampus/cms-api/internal/repository"
	"github.com/opencampus/cms-api/internal/utils"
)

// Permission slugs follow resource:action[:scope].  The :any/:self pairs
// drive the any-of route requirements; holders of :self grants are
// restricted to their own records by the handlers.
const (
	PermSessionCreate        = "session:create"
	PermSessionReadAny       = "session:read:any"
	PermSessionReadSelf      = "session:read:self"
	PermSessionDeleteAny     = "session:delete:any"
	PermSessionDeleteSelf    = "session:delete:self"
	PermSessionDeleteExpired = "session:delete:expired"

	PermUserCreate     = "user:create"
	PermUserReadAny    = "user:read:any"
	PermUserReadSelf   = "user:read:self"
	PermUserUpdateAny  = "user:update:any"
	PermUserUpdateSelf = "user:update:self"
	PermUserDelete     = "user:delete"

	PermPermissionCreate = "permission:create"
	PermPermissionRead   = "permission:read"
	PermPermissionDelete = "permission:delete"
	PermPermissionGrant  = "permission:grant"
	PermPermissionRevoke = "permission:revoke"

	PermStudentCreate     = "student:create"
	PermStudentReadAny    = "student:read:any"
	PermStudentReadSelf   = "student:read:self"
	PermStudentUpdateAny  = "student:update:any"
	PermStudentUpdateSelf = "student:update:self"
	PermStudentDelete     = "student:delete"
	PermStudentEnroll     = "student:enroll"

	PermStaffCreate     = "staff:create"
	PermStaffReadAny    = "staff:read:any"
	PermStaffReadSelf   = "staff:read:self"
	PermStaffUpdateAny  = "staff:update:any"
	PermStaffUpdateSelf = "staff:update:self"
	PermStaffDelete     = "staff:delete"
	PermStaffAssign     = "staff:assign"

	PermParentCreate = "parent:create"
	PermParentRead   = "parent:read"
	PermParentUpdate = "parent:update"
	PermParentDelete = "parent:delete"
	PermParentLink   = "parent:link"

	PermSchoolCreate = "school:create"
	PermSchoolRead   = "school:read"
	PermSchoolUpdate = "school:update"
	PermSchoolDelete = "school:delete"

	PermDepartmentCreate = "department:create"
	PermDepartmentRead   = "department:read"
	PermDepartmentUpdate = "department:update"
	PermDepartmentDelete = "department:delete"

	PermProgramCreate = "program:create"
	PermProgramRead   = "program:read"
	PermProgramUpdate = "program:update"
	PermProgramDelete = "program:delete"

	PermBatchCreate = "batch:create"
	PermBatchRead   = "batch:read"
	PermBatchUpdate = "batch:update"
	PermBatchDelete = "batch:delete"
)

// catalog pairs each slug with its description for seeding.
var catalog = map[string]string{
	PermSessionCreate:        "Create sessions on behalf of users",
	PermSessionReadAny:       "Read any user's sessions",
	PermSessionReadSelf:      "Read own sessions",
	PermSessionDeleteAny:     "Terminate any session",
	PermSessionDeleteSelf:    "Terminate own sessions",
	PermSessionDeleteExpired: "Purge expired sessions",

	PermUserCreate:     "Create user accounts",
	PermUserReadAny:    "Read any user account",
	PermUserReadSelf:   "Read own user account",
	PermUserUpdateAny:  "Update any user account",
	PermUserUpdateSelf: "Update own user account",
	PermUserDelete:     "Delete user accounts",

	PermPermissionCreate: "Create permissions",
	PermPermissionRead:   "Read the permission catalog",
	PermPermissionDelete: "Delete permissions",
	PermPermissionGrant:  "Grant permissions to users",
	PermPermissionRevoke: "Revoke permissions from users",

	PermStudentCreate:     "Create student profiles",
	PermStudentReadAny:    "Read any student profile",
	PermStudentReadSelf:   "Read own student profile",
	PermStudentUpdateAny:  "Update any student profile",
	PermStudentUpdateSelf: "Update own student profile",
	PermStudentDelete:     "Delete student profiles",
	PermStudentEnroll:     "Enroll students into batches",

	PermStaffCreate:     "Create staff profiles",
	PermStaffReadAny:    "Read any staff profile",
	PermStaffReadSelf:   "Read own staff profile",
	PermStaffUpdateAny:  "Update any staff profile",
	PermStaffUpdateSelf: "Update own staff profile",
	PermStaffDelete:     "Delete staff profiles",
	PermStaffAssign:     "Assign staff to departments",

	PermParentCreate: "Create parent records",
	PermParentRead:   "Read parent records",
	PermParentUpdate: "Update parent records",
	PermParentDelete: "Delete parent records",
	PermParentLink:   "Link students to parents",

	PermSchoolCreate: "Create schools",
	PermSchoolRead:   "Read schools",
	PermSchoolUpdate: "Update schools",
	PermSchoolDelete: "Delete schools",

	PermDepartmentCreate: "Create departments",
	PermDepartmentRead:   "Read departments",
	PermDepartmentUpdate: "Update departments",
	PermDepartmentDelete: "Delete departments",

	PermProgramCreate: "Create programs",
	PermProgramRead:   "Read programs",
	PermProgramUpdate: "Update programs",
	PermProgramDelete: "Delete programs",

	PermBatchCreate: "Create batches",
	PermBatchRead:   "Read batches",
	PermBatchUpdate: "Update batches",
	PermBatchDelete: "Delete batches",
}

// Slugs returns the full catalog of known permission slugs.
func Slugs() []string {
	out := make([]string, 0, len(catalog))
	for slug := range catalog {
		out = append(out, slug)
	}
	return out
}

// Ensure seeds the permission catalog and the bootstrap admin, granting
// the admin every known permission.  Skips admin creation when no
// ADMIN_PASSWORD is configured.
func Ensure(ctx context.Context, cfg config.Config, users *repository.UserRepo, perms *repository.PermissionRepo) error {
	for slug, desc := range catalog {
		if err := perms.Create(ctx, slug, desc); err != nil {
			if apierr.Is(err, "permission_already_exists") {
				continue
			}
			return fmt.Errorf("seed permission %s: %w", slug, err)
		}
	}

	if cfg.AdminPassword == "" {
		log.Println("setup: ADMIN_PASSWORD not set, skipping bootstrap admin")
		return nil
	}

	u, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		if !apierr.Is(err, "user_not_found") {
			return fmt.Errorf("lookup admin: %w", err)
		}
		hash, err := utils.HashPassword(cfg.AdminPassword, cfg.Argon2)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		id, err := users.Create(ctx, cfg.AdminEmail, hash, cfg.AdminContact, nil)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		log.Printf("setup: bootstrap admin %s created", cfg.AdminEmail)
		return users.GrantPermissions(ctx, id, Slugs())
	}

	// Existing admin keeps its password; only top up grants.
	return users.GrantPermissions(ctx, u.ID, Slugs())
}
