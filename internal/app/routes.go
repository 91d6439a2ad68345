package app

import (
	"github.com/doneboard/doneboard/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Tasks
	r.HandleFunc("/api/tasks", deps.TaskHandler.GetTasks).Methods("GET")
	r.HandleFunc("/api/tasks", deps.TaskHandler.CreateTask).Methods("POST")
	r.HandleFunc("/api/tasks/{taskId}", deps.TaskHandler.UpdateTask).Methods("PUT")
	r.HandleFunc("/api/tasks/{taskId}/completed", deps.TaskHandler.SetCompleted).Methods("PATCH")
	r.HandleFunc("/api/tasks/{taskId}", deps.TaskHandler.DeleteTask).Methods("DELETE")

	// User management
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.UpdateUser).Methods("PUT")
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")

	// Google integration
	r.HandleFunc("/api/integrations/google/auth/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/logout", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/api/integrations/google/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/integrations/google/calendars", deps.GoogleHandler.ListCalendars).Methods("GET")
}
