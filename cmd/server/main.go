package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/config"
	"github.com/opencampus/cms-api/internal/database"
	"github.com/opencampus/cms-api/internal/handler"
	"github.com/opencampus/cms-api/internal/queue"
	"github.com/opencampus/cms-api/internal/repository"
	"github.com/opencampus/cms-api/internal/router"
	"github.com/opencampus/cms-api/internal/setup"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.Load()

	db, err := database.Open(database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,

		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db, cfg.SessionTTL)
	permissions := repository.NewPermissionRepo(db)
	students := repository.NewStudentRepo(db)
	staff := repository.NewStaffRepo(db)
	parents := repository.NewParentRepo(db)
	schools := repository.NewSchoolRepo(db)
	departments := repository.NewDepartmentRepo(db)
	programs := repository.NewProgramRepo(db)
	batches := repository.NewBatchRepo(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := setup.Ensure(ctx, cfg, users, permissions); err != nil {
		cancel()
		log.Fatalf("setup: %v", err)
	}
	cancel()

	// Audit trail consumer; reconnects on broker failure.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	// Retention sweep for long-expired sessions.
	go purgeLoop(sessions, cfg.PurgeInterval)

	rdb := config.NewRedisClient()
	rlCfg := config.LoadRateLimitConfig()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apierr.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	h := router.Handlers{
		Auth:        handler.NewAuthHandler(users, sessions),
		Sessions:    handler.NewSessionHandler(sessions),
		Users:       handler.NewUserHandler(users, sessions, cfg.Argon2),
		Permissions: handler.NewPermissionHandler(permissions),
		Students:    handler.NewStudentHandler(students, cfg.Argon2),
		Staff:       handler.NewStaffHandler(staff, cfg.Argon2),
		Parents:     handler.NewParentHandler(parents),
		Schools:     handler.NewSchoolHandler(schools, staff),
		Departments: handler.NewDepartmentHandler(departments, staff),
		Programs:    handler.NewProgramHandler(programs),
		Batches:     handler.NewBatchHandler(batches),
	}
	router.Register(e, h, sessions, users, rlCfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// purgeLoop hard-deletes sessions past the retention window on a timer.
func purgeLoop(sessions *repository.SessionRepo, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := sessions.PurgeExpired(ctx); err != nil {
			log.Printf("session purge failed: %v", err)
		}
		cancel()
	}
}
