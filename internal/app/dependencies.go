package app

import (
	"github.com/doneboard/doneboard/internal/config"
	"github.com/doneboard/doneboard/pkg/google"
	"github.com/doneboard/doneboard/pkg/task"
	"github.com/doneboard/doneboard/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	UserService user.Service
	UserHandler *user.Handler

	GoogleAuth    *google.GoogleAuth
	GoogleService google.Service
	GoogleHandler *google.Handler

	TaskService task.Service
	TaskHandler *task.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.GoogleAuth = google.NewGoogleAuth(db, deps.UserService, cfg)
	deps.GoogleService = google.NewService(deps.GoogleAuth)
	deps.GoogleHandler = google.NewHandler(deps.GoogleService)

	deps.TaskService = task.NewService(deps.GoogleService.TaskStore)
	deps.TaskHandler = task.NewHandler(deps.TaskService)

	return deps
}
