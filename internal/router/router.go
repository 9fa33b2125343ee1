// Package router wires every endpoint to its handler and declares the
// permission requirement each route carries.  Requirements come in two
// shapes: RequirePermissions demands every listed slug, RequireAnyOf
// admits the first fully-held group.  Any-of groups are always registered
// broad grant first, self-scoped grant second; handlers rely on that
// order to decide when an ownership check applies.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/opencampus/cms-api/internal/config"
	"github.com/opencampus/cms-api/internal/handler"
	"github.com/opencampus/cms-api/internal/middleware"
	"github.com/opencampus/cms-api/internal/setup"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Sessions    *handler.SessionHandler
	Users       *handler.UserHandler
	Permissions *handler.PermissionHandler
	Students    *handler.StudentHandler
	Staff       *handler.StaffHandler
	Parents     *handler.ParentHandler
	Schools     *handler.SchoolHandler
	Departments *handler.DepartmentHandler
	Programs    *handler.ProgramHandler
	Batches     *handler.BatchHandler
}

// Register mounts all routes.  sessions/perms feed the authentication
// middleware; rlCfg and rdb feed the token bucket on the auth endpoints.
func Register(e *echo.Echo, h Handlers, sessions middleware.SessionSource, perms middleware.PermissionSource,
	rlCfg config.RateLimitConfig, rdb *redis.Client) {

	e.GET("/healthz", handler.Health)

	// Public faculty directory; no credentials needed.
	e.GET("/v1/faculty", h.Staff.ListPublic)

	// Login is the only credentialed-but-unauthenticated endpoint, and the
	// prime credential-stuffing target, so it gets the token bucket.
	e.POST("/v1/auth/login", h.Auth.Login, middleware.RateLimit(rlCfg, rdb))

	// Logout and refresh resolve the bearer by parse only, never through
	// the validity-checking middleware: an expired or terminated session
	// must still be able to log itself out, and a stale refresh must come
	// back as 404 rather than 403.  The store's conditional updates make
	// the call on what the token still names.
	e.POST("/v1/auth/logout", h.Auth.Logout)
	e.POST("/v1/auth/refresh", h.Auth.Refresh)

	authn := middleware.Authenticate(sessions, perms)

	v1 := e.Group("/v1", authn)

	// Administrative session operations.
	v1.POST("/sessions", h.Sessions.Create,
		middleware.RequirePermissions(setup.PermSessionCreate))
	v1.GET("/sessions/:session_id", h.Sessions.Get,
		middleware.RequireAnyOf(
			[]string{setup.PermSessionReadAny},
			[]string{setup.PermSessionReadSelf},
		))
	v1.GET("/sessions/user/:user_id", h.Sessions.ListForUser,
		middleware.RequireAnyOf(
			[]string{setup.PermSessionReadAny},
			[]string{setup.PermSessionReadSelf},
		))
	v1.DELETE("/sessions/:session_id", h.Sessions.Terminate,
		middleware.RequireAnyOf(
			[]string{setup.PermSessionDeleteAny},
			[]string{setup.PermSessionDeleteSelf},
		))
	v1.DELETE("/sessions/user/:user_id", h.Sessions.TerminateAllForUser,
		middleware.RequireAnyOf(
			[]string{setup.PermSessionDeleteAny},
			[]string{setup.PermSessionDeleteSelf},
		))
	v1.POST("/sessions/purge", h.Sessions.Purge,
		middleware.RequirePermissions(setup.PermSessionDeleteExpired))

	// Accounts and grants.
	v1.POST("/users", h.Users.Create,
		middleware.RequirePermissions(setup.PermUserCreate))
	v1.GET("/users/:user_id", h.Users.Get,
		middleware.RequireAnyOf(
			[]string{setup.PermUserReadAny},
			[]string{setup.PermUserReadSelf},
		))
	v1.PATCH("/users/:user_id", h.Users.Update,
		middleware.RequireAnyOf(
			[]string{setup.PermUserUpdateAny},
			[]string{setup.PermUserUpdateSelf},
		))
	v1.DELETE("/users/:user_id", h.Users.Delete,
		middleware.RequirePermissions(setup.PermUserDelete))
	v1.POST("/users/password", h.Users.ChangePassword)
	v1.GET("/users/:user_id/permissions", h.Users.Permissions,
		middleware.RequireAnyOf(
			[]string{setup.PermUserReadAny},
			[]string{setup.PermUserReadSelf},
		))
	v1.POST("/users/:user_id/permissions", h.Users.Grant,
		middleware.RequirePermissions(setup.PermPermissionGrant))
	v1.DELETE("/users/:user_id/permissions", h.Users.Revoke,
		middleware.RequirePermissions(setup.PermPermissionRevoke))

	// Permission catalog.
	v1.POST("/permissions", h.Permissions.Create,
		middleware.RequirePermissions(setup.PermPermissionCreate))
	v1.GET("/permissions", h.Permissions.List,
		middleware.RequirePermissions(setup.PermPermissionRead))
	v1.DELETE("/permissions/:slug", h.Permissions.Delete,
		middleware.RequirePermissions(setup.PermPermissionDelete))

	// Students.
	v1.POST("/students", h.Students.Create,
		middleware.RequirePermissions(setup.PermStudentCreate))
	v1.GET("/students", h.Students.List,
		middleware.RequirePermissions(setup.PermStudentReadAny))
	v1.GET("/students/:student_id", h.Students.Get,
		middleware.RequireAnyOf(
			[]string{setup.PermStudentReadAny},
			[]string{setup.PermStudentReadSelf},
		))
	v1.PATCH("/students/:student_id", h.Students.Update,
		middleware.RequireAnyOf(
			[]string{setup.PermStudentUpdateAny},
			[]string{setup.PermStudentUpdateSelf},
		))
	v1.DELETE("/students/:student_id", h.Students.Delete,
		middleware.RequirePermissions(setup.PermStudentDelete))
	v1.POST("/students/:student_id/enrollments", h.Students.Enroll,
		middleware.RequirePermissions(setup.PermStudentEnroll))
	v1.GET("/students/:student_id/enrollments", h.Students.Enrollments,
		middleware.RequireAnyOf(
			[]string{setup.PermStudentReadAny},
			[]string{setup.PermStudentReadSelf},
		))

	// Staff.
	v1.POST("/staff", h.Staff.Create,
		middleware.RequirePermissions(setup.PermStaffCreate))
	v1.GET("/staff", h.Staff.List,
		middleware.RequirePermissions(setup.PermStaffReadAny))
	v1.GET("/staff/:staff_id", h.Staff.Get,
		middleware.RequireAnyOf(
			[]string{setup.PermStaffReadAny},
			[]string{setup.PermStaffReadSelf},
		))
	v1.PATCH("/staff/:staff_id", h.Staff.Update,
		middleware.RequireAnyOf(
			[]string{setup.PermStaffUpdateAny},
			[]string{setup.PermStaffUpdateSelf},
		))
	v1.PUT("/staff/:staff_id/department", h.Staff.AssignDepartment,
		middleware.RequirePermissions(setup.PermStaffAssign))
	v1.DELETE("/staff/:staff_id", h.Staff.Delete,
		middleware.RequirePermissions(setup.PermStaffDelete))

	// Parents.
	v1.POST("/parents", h.Parents.Create,
		middleware.RequirePermissions(setup.PermParentCreate))
	v1.GET("/parents", h.Parents.List,
		middleware.RequirePermissions(setup.PermParentRead))
	v1.GET("/parents/:parent_id", h.Parents.Get,
		middleware.RequirePermissions(setup.PermParentRead))
	v1.PATCH("/parents/:parent_id", h.Parents.Update,
		middleware.RequirePermissions(setup.PermParentUpdate))
	v1.DELETE("/parents/:parent_id", h.Parents.Delete,
		middleware.RequirePermissions(setup.PermParentDelete))
	v1.POST("/parents/:parent_id/students", h.Parents.LinkStudent,
		middleware.RequirePermissions(setup.PermParentLink))
	v1.DELETE("/parents/:parent_id/students/:student_id", h.Parents.UnlinkStudent,
		middleware.RequirePermissions(setup.PermParentLink))
	v1.GET("/parents/:parent_id/students", h.Parents.Students,
		middleware.RequirePermissions(setup.PermParentRead))

	// Schools.
	v1.POST("/schools", h.Schools.Create,
		middleware.RequirePermissions(setup.PermSchoolCreate))
	v1.GET("/schools", h.Schools.List,
		middleware.RequirePermissions(setup.PermSchoolRead))
	v1.GET("/schools/:school_id", h.Schools.Get,
		middleware.RequirePermissions(setup.PermSchoolRead))
	v1.PATCH("/schools/:school_id", h.Schools.Update,
		middleware.RequirePermissions(setup.PermSchoolUpdate))
	v1.DELETE("/schools/:school_id", h.Schools.Delete,
		middleware.RequirePermissions(setup.PermSchoolDelete))

	// Departments.
	v1.POST("/departments", h.Departments.Create,
		middleware.RequirePermissions(setup.PermDepartmentCreate))
	v1.GET("/departments", h.Departments.List,
		middleware.RequirePermissions(setup.PermDepartmentRead))
	v1.GET("/departments/:department_id", h.Departments.Get,
		middleware.RequirePermissions(setup.PermDepartmentRead))
	v1.PATCH("/departments/:department_id", h.Departments.Update,
		middleware.RequirePermissions(setup.PermDepartmentUpdate))
	v1.DELETE("/departments/:department_id", h.Departments.Delete,
		middleware.RequirePermissions(setup.PermDepartmentDelete))

	// Programs.
	v1.POST("/programs", h.Programs.Create,
		middleware.RequirePermissions(setup.PermProgramCreate))
	v1.GET("/programs", h.Programs.List,
		middleware.RequirePermissions(setup.PermProgramRead))
	v1.GET("/programs/:program_id", h.Programs.Get,
		middleware.RequirePermissions(setup.PermProgramRead))
	v1.PATCH("/programs/:program_id", h.Programs.Update,
		middleware.RequirePermissions(setup.PermProgramUpdate))
	v1.DELETE("/programs/:program_id", h.Programs.Delete,
		middleware.RequirePermissions(setup.PermProgramDelete))

	// Batches.
	v1.POST("/batches", h.Batches.Create,
		middleware.RequirePermissions(setup.PermBatchCreate))
	v1.GET("/batches", h.Batches.List,
		middleware.RequirePermissions(setup.PermBatchRead))
	v1.GET("/batches/:batch_id", h.Batches.Get,
		middleware.RequirePermissions(setup.PermBatchRead))
	v1.PATCH("/batches/:batch_id", h.Batches.Update,
		middleware.RequirePermissions(setup.PermBatchUpdate))
	v1.DELETE("/batches/:batch_id", h.Batches.Delete,
		middleware.RequirePermissions(setup.PermBatchDelete))
	v1.GET("/batches/:batch_id/students", h.Batches.Students,
		middleware.RequirePermissions(setup.PermBatchRead))
}
