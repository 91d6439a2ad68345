package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/doneboard/doneboard/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type TaskDTO struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	AllDay      bool       `json:"allDay,omitempty"`
	Completed   bool       `json:"completed"`
}

type RatioDTO struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Ratio     float64 `json:"ratio"`
}

type ProgressDTO struct {
	Overall RatioDTO `json:"overall"`
	Today   RatioDTO `json:"today"`
}

type SnapshotDTO struct {
	Buckets  map[Category][]TaskDTO `json:"buckets"`
	Progress ProgressDTO            `json:"progress"`
}

type completionDTO struct {
	Completed bool `json:"completed"`
}

// GetTasks fetches the remote truth and returns the full view model.
func (h *Handler) GetTasks(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(snapshotToDTO(snapshot)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var dto TaskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.End == nil {
		writeBadRequest(w, "Missing end date", "'end' is required to categorize a task")
		return
	}

	created, err := h.service.CreateTask(r.Context(), dtoToTask(dto))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(taskToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskId := mux.Vars(r)["taskId"]
	var dto TaskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.End == nil {
		writeBadRequest(w, "Missing end date", "'end' is required to categorize a task")
		return
	}

	t := dtoToTask(dto)
	t.ID = taskId
	updated, err := h.service.UpdateTask(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(taskToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// SetCompleted toggles the completion flag. Only the flag is sent to the
// remote store; the rest of the event stays untouched.
func (h *Handler) SetCompleted(w http.ResponseWriter, r *http.Request) {
	taskId := mux.Vars(r)["taskId"]
	var dto completionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.service.SetCompleted(r.Context(), taskId, dto.Completed)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(taskToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskId := mux.Vars(r)["taskId"]

	if err := h.service.DeleteTask(r.Context(), taskId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	var status int
	var response rest.ErrorResponse
	switch {
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
		response = rest.ErrorResponse{Error: "Calendar authorization expired", Details: "Sign in with Google again"}
	case errors.Is(err, ErrTaskNotFound):
		status = http.StatusNotFound
		response = rest.ErrorResponse{Error: "Task not found"}
	case errors.Is(err, ErrMissingEnd):
		status = http.StatusBadRequest
		response = rest.ErrorResponse{Error: "Missing end date", Details: "'end' is required to categorize a task"}
	case errors.Is(err, ErrRemoteRequest):
		status = http.StatusBadGateway
		response = rest.ErrorResponse{Error: "Calendar request failed"}
	default:
		status = http.StatusInternalServerError
		response = rest.ErrorResponse{Error: "Internal server error"}
	}
	log.Debugf("task request failed with %d: %v", status, err)
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

func writeBadRequest(w http.ResponseWriter, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(rest.ErrorResponse{Error: message, Details: details}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func taskToDTO(t Task) TaskDTO {
	dto := TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		AllDay:      t.AllDay,
		Completed:   t.Completed,
	}
	if !t.StartTime.IsZero() {
		start := t.StartTime
		dto.Start = &start
	}
	if !t.EndTime.IsZero() {
		end := t.EndTime
		dto.End = &end
	}
	return dto
}

func dtoToTask(dto TaskDTO) Task {
	t := Task{
		ID:          dto.ID,
		Title:       dto.Title,
		Description: dto.Description,
		AllDay:      dto.AllDay,
		Completed:   dto.Completed,
	}
	if dto.Start != nil {
		t.StartTime = *dto.Start
	}
	if dto.End != nil {
		t.EndTime = *dto.End
	}
	return t
}

func snapshotToDTO(s Snapshot) SnapshotDTO {
	buckets := map[Category][]TaskDTO{
		CategoryOverdue:   tasksToDTOs(s.Buckets.Overdue),
		CategoryToday:     tasksToDTOs(s.Buckets.Today),
		CategoryTomorrow:  tasksToDTOs(s.Buckets.Tomorrow),
		CategoryUpcoming:  tasksToDTOs(s.Buckets.Upcoming),
		CategoryCompleted: tasksToDTOs(s.Buckets.Completed),
	}
	return SnapshotDTO{
		Buckets: buckets,
		Progress: ProgressDTO{
			Overall: ratioToDTO(s.Progress.Overall),
			Today:   ratioToDTO(s.Progress.Today),
		},
	}
}

func tasksToDTOs(tasks []Task) []TaskDTO {
	dtos := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		dtos = append(dtos, taskToDTO(t))
	}
	return dtos
}

func ratioToDTO(r Ratio) RatioDTO {
	return RatioDTO{Completed: r.Completed, Total: r.Total, Ratio: r.Value}
}
