package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/doneboard/doneboard/internal/utils"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

var handlerNow = time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)

// Test setup helper
func setupHandlerTest(t *testing.T) (*Handler, *StubStore) {
	store := NewStubStore()
	service := &ServiceImpl{
		stores: func(ctx context.Context) (EventStore, error) { return store, nil },
		clock:  &utils.MockClock{FixedNow: handlerNow},
		states: map[int]*userTasks{},
	}
	t.Cleanup(store.Cleanup)
	return NewHandler(service), store
}

// Helper to create a task through the handler and return the response DTO
func createTestTask(t *testing.T, handler *Handler, dto TaskDTO) TaskDTO {
	body, err := json.Marshal(dto)
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.CreateTask(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created TaskDTO
	err = json.NewDecoder(w.Body).Decode(&created)
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID, "Created task should have an id")
	return created
}

func TestGetTasks_ReturnsCategorizedSnapshot(t *testing.T) {
	// Setup
	handler, store := setupHandlerTest(t)
	ctx := context.Background()

	store.Insert(ctx, Task{Title: "overdue report", EndTime: handlerNow.AddDate(0, 0, -2)})
	store.Insert(ctx, Task{Title: "today call", EndTime: handlerNow})
	store.Insert(ctx, Task{Title: "done chore", EndTime: handlerNow, Completed: true})

	// Call the handler
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	handler.GetTasks(w, req)

	// Verify response
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var snapshot SnapshotDTO
	err := json.NewDecoder(w.Body).Decode(&snapshot)
	assert.NoError(t, err)

	assert.Len(t, snapshot.Buckets[CategoryOverdue], 1)
	assert.Equal(t, "overdue report", snapshot.Buckets[CategoryOverdue][0].Title)
	assert.Len(t, snapshot.Buckets[CategoryToday], 1)
	assert.Len(t, snapshot.Buckets[CategoryCompleted], 1)
	assert.Empty(t, snapshot.Buckets[CategoryTomorrow])
	assert.Empty(t, snapshot.Buckets[CategoryUpcoming])

	// Overdue tasks do not count toward overall progress
	assert.Equal(t, 2, snapshot.Progress.Overall.Total)
	assert.Equal(t, 1, snapshot.Progress.Overall.Completed)
	assert.InDelta(t, 0.5, snapshot.Progress.Overall.Ratio, 1e-9)
}

func TestGetTasks_UnauthorizedStoreMapsTo401(t *testing.T) {
	// Setup
	handler, store := setupHandlerTest(t)
	store.ListErr = ErrUnauthorized

	// Call the handler
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	handler.GetTasks(w, req)

	// Verify response
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var errResponse struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	err := json.NewDecoder(w.Body).Decode(&errResponse)
	assert.NoError(t, err)
	assert.Contains(t, errResponse.Error, "authorization")
}

func TestGetTasks_UnexpectedErrorIsNotEchoedToClient(t *testing.T) {
	// Setup
	handler, store := setupHandlerTest(t)
	store.ListErr = errors.New("pq: connection reset while reading token row")

	// Call the handler
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	handler.GetTasks(w, req)

	// Verify response: a fixed message, internals stay in the log
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "connection reset")

	var errResponse struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	err := json.Unmarshal([]byte(body), &errResponse)
	assert.NoError(t, err)
	assert.Equal(t, "Internal server error", errResponse.Error)
}

func TestCreateTask_RequiresEndDate(t *testing.T) {
	// Setup
	handler, _ := setupHandlerTest(t)

	body, err := json.Marshal(TaskDTO{Title: "no end"})
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreateTask(w, req)

	// Verify response
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResponse struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	err = json.NewDecoder(w.Body).Decode(&errResponse)
	assert.NoError(t, err)
	assert.Contains(t, errResponse.Error, "end date")
}

func TestCreateTask_InvalidJsonReturns400(t *testing.T) {
	// Setup
	handler, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreateTask(w, req)

	// Verify response
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateThenGet_TaskAppearsInBucket(t *testing.T) {
	// Setup
	handler, _ := setupHandlerTest(t)

	end := handlerNow.AddDate(0, 0, 1)
	created := createTestTask(t, handler, TaskDTO{Title: "prepare slides", End: &end})

	// Fetch the snapshot
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	handler.GetTasks(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var snapshot SnapshotDTO
	err := json.NewDecoder(w.Body).Decode(&snapshot)
	assert.NoError(t, err)

	assert.Len(t, snapshot.Buckets[CategoryTomorrow], 1)
	assert.Equal(t, created.ID, snapshot.Buckets[CategoryTomorrow][0].ID)
	assert.Equal(t, "prepare slides", snapshot.Buckets[CategoryTomorrow][0].Title)
}

func TestUpdateTask(t *testing.T) {
	// Setup
	handler, _ := setupHandlerTest(t)

	end := handlerNow
	created := createTestTask(t, handler, TaskDTO{Title: "draft email", Description: "to Anna", End: &end})

	// Update title and move the due date
	newEnd := handlerNow.AddDate(0, 0, 3)
	body, err := json.Marshal(TaskDTO{Title: "send email", End: &newEnd})
	assert.NoError(t, err)

	updateReq := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/tasks/%s", created.ID), bytes.NewBuffer(body))
	updateReq.Header.Set("Content-Type", "application/json")
	updateReq = mux.SetURLVars(updateReq, map[string]string{"taskId": created.ID})
	updateW := httptest.NewRecorder()
	handler.UpdateTask(updateW, updateReq)

	// Verify response
	assert.Equal(t, http.StatusOK, updateW.Code)

	var updated TaskDTO
	err = json.NewDecoder(updateW.Body).Decode(&updated)
	assert.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "Id should remain the same")
	assert.Equal(t, "send email", updated.Title)
	assert.Equal(t, "", updated.Description, "Omitted description clears the stored one")
	assert.Equal(t, newEnd.Unix(), updated.End.Unix())
}

func TestUpdateTask_RequiresEndDate(t *testing.T) {
	// Setup
	handler, _ := setupHandlerTest(t)

	end := handlerNow
	created := createTestTask(t, handler, TaskDTO{Title: "keep my date", End: &end})

	// Send an update without an end date
	body, err := json.Marshal(TaskDTO{Title: "end cleared"})
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/tasks/%s", created.ID), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req = mux.SetURLVars(req, map[string]string{"taskId": created.ID})
	w := httptest.NewRecorder()
	handler.UpdateTask(w, req)

	// Verify response
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResponse struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	err = json.NewDecoder(w.Body).Decode(&errResponse)
	assert.NoError(t, err)
	assert.Contains(t, errResponse.Error, "end date")

	// The task must still be in its bucket, not silently uncategorizable
	getReq := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	getW := httptest.NewRecorder()
	handler.GetTasks(getW, getReq)
	var snapshot SnapshotDTO
	err = json.NewDecoder(getW.Body).Decode(&snapshot)
	assert.NoError(t, err)
	assert.Len(t, snapshot.Buckets[CategoryToday], 1)
	assert.Equal(t, "keep my date", snapshot.Buckets[CategoryToday][0].Title)
}

func TestUpdateTask_UnknownIdReturns404(t *testing.T) {
	// Setup
	handler, _ := setupHandlerTest(t)

	end := handlerNow
	body, err := json.Marshal(TaskDTO{Title: "ghost", End: &end})
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/tasks/no-such-task", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req = mux.SetURLVars(req, map[string]string{"taskId": "no-such-task"})
	w := httptest.NewRecorder()

	// Call the handler
	handler.UpdateTask(w, req)

	// Verify response
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetCompleted_TogglesFlag(t *testing.T) {
	// Setup
	handler, _ := setupHandlerTest(t)

	end := handlerNow
	created := createTestTask(t, handler, TaskDTO{Title: "water plants", End: &end})

	// Toggle the flag on
	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/tasks/%s/completed", created.ID),
		bytes.NewBufferString(`{"completed": true}`))
	req.Header.Set("Content-Type", "application/json")
	req = mux.SetURLVars(req, map[string]string{"taskId": created.ID})
	w := httptest.NewRecorder()
	handler.SetCompleted(w, req)

	// Verify response
	assert.Equal(t, http.StatusOK, w.Code)

	var toggled TaskDTO
	err := json.NewDecoder(w.Body).Decode(&toggled)
	assert.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.Equal(t, "water plants", toggled.Title, "Toggling must not touch other fields")

	// Verify the task moved to the completed bucket
	getReq := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	getW := httptest.NewRecorder()
	handler.GetTasks(getW, getReq)
	assert.Equal(t, http.StatusOK, getW.Code)

	var snapshot SnapshotDTO
	err = json.NewDecoder(getW.Body).Decode(&snapshot)
	assert.NoError(t, err)
	assert.Empty(t, snapshot.Buckets[CategoryToday])
	assert.Len(t, snapshot.Buckets[CategoryCompleted], 1)
}

func TestSetCompleted_RemoteFailureMapsTo502(t *testing.T) {
	// Setup
	handler, store := setupHandlerTest(t)

	end := handlerNow
	created := createTestTask(t, handler, TaskDTO{Title: "doomed toggle", End: &end})
	store.SetCompletedErr = ErrRemoteRequest

	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/tasks/%s/completed", created.ID),
		bytes.NewBufferString(`{"completed": true}`))
	req.Header.Set("Content-Type", "application/json")
	req = mux.SetURLVars(req, map[string]string{"taskId": created.ID})
	w := httptest.NewRecorder()

	// Call the handler
	handler.SetCompleted(w, req)

	// Verify response
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// The optimistic flag must have been rolled back
	getReq := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	getW := httptest.NewRecorder()
	handler.GetTasks(getW, getReq)
	var snapshot SnapshotDTO
	err := json.NewDecoder(getW.Body).Decode(&snapshot)
	assert.NoError(t, err)
	assert.Len(t, snapshot.Buckets[CategoryToday], 1)
	assert.False(t, snapshot.Buckets[CategoryToday][0].Completed)
}

func TestDeleteTask(t *testing.T) {
	// Setup
	handler, _ := setupHandlerTest(t)

	end := handlerNow
	created := createTestTask(t, handler, TaskDTO{Title: "old errand", End: &end})

	// Delete it
	deleteReq := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/tasks/%s", created.ID), nil)
	deleteReq = mux.SetURLVars(deleteReq, map[string]string{"taskId": created.ID})
	deleteW := httptest.NewRecorder()
	handler.DeleteTask(deleteW, deleteReq)
	assert.Equal(t, http.StatusNoContent, deleteW.Code)

	// Verify it is gone
	getReq := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	getW := httptest.NewRecorder()
	handler.GetTasks(getW, getReq)
	assert.Equal(t, http.StatusOK, getW.Code)

	var snapshot SnapshotDTO
	err := json.NewDecoder(getW.Body).Decode(&snapshot)
	assert.NoError(t, err)
	assert.Empty(t, snapshot.Buckets[CategoryToday])
}

func TestDeleteTask_UnknownIdReturns404(t *testing.T) {
	// Setup
	handler, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/tasks/no-such-task", nil)
	req = mux.SetURLVars(req, map[string]string{"taskId": "no-such-task"})
	w := httptest.NewRecorder()

	// Call the handler
	handler.DeleteTask(w, req)

	// Verify response
	assert.Equal(t, http.StatusNotFound, w.Code)
}
