package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/doneboard/doneboard/pkg/task"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// eventStore is the Remote Store Client backed by Google Calendar. One
// instance is bound to one user's calendar and one authenticated service.
type eventStore struct {
	service    *calendar.Service
	calendarId string
}

func newEventStore(service *calendar.Service, calendarId string) *eventStore {
	return &eventStore{service: service, calendarId: calendarId}
}

func (s *eventStore) List(ctx context.Context) ([]task.Task, error) {
	googleEvents, err := s.service.Events.List(s.calendarId).
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		err := fmt.Errorf("unable to retrieve events from Google Calendar: %w", classifyError(err))
		log.Error(err)
		return nil, err
	}

	// One malformed record is skipped; the rest of the fetch still succeeds.
	tasks := make([]task.Task, 0, len(googleEvents.Items))
	for _, item := range googleEvents.Items {
		t, err := taskFromEvent(item)
		if err != nil {
			log.Warnf("skipping unmappable calendar event: %v", err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *eventStore) Insert(ctx context.Context, t task.Task) (task.Task, error) {
	log.Debugf("Inserting task %q into calendar %s", t.Title, s.calendarId)
	result, err := s.service.Events.Insert(s.calendarId, eventFromTask(t)).Context(ctx).Do()
	if err != nil {
		err := fmt.Errorf("unable to insert event in Google Calendar: %w", classifyError(err))
		log.Error(err)
		return task.Task{}, err
	}
	t.ID = result.Id
	return t, nil
}

func (s *eventStore) Update(ctx context.Context, t task.Task) (task.Task, error) {
	// A full-body PUT would clear the completion property, so it is carried
	// along with the current value.
	payload := eventFromTask(t)
	payload.ExtendedProperties = completionProperties(t.Completed)

	result, err := s.service.Events.Update(s.calendarId, t.ID, payload).Context(ctx).Do()
	if err != nil {
		err := fmt.Errorf("unable to update event in Google Calendar: %w", classifyError(err))
		log.Error(err)
		return task.Task{}, err
	}
	t.ID = result.Id
	return t, nil
}

func (s *eventStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	_, err := s.service.Events.Patch(s.calendarId, id, completionPatch(completed)).Context(ctx).Do()
	if err != nil {
		err := fmt.Errorf("unable to patch completion flag in Google Calendar: %w", classifyError(err))
		log.Error(err)
		return err
	}
	return nil
}

func (s *eventStore) Delete(ctx context.Context, id string) error {
	if err := s.service.Events.Delete(s.calendarId, id).Context(ctx).Do(); err != nil {
		err := fmt.Errorf("unable to delete event from Google Calendar: %w", classifyError(err))
		log.Error(err)
		return err
	}
	return nil
}

// classifyError folds a Google API failure into the engine's error taxonomy:
// credential problems become ErrUnauthorized, everything else
// ErrRemoteRequest.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("status %d: %w", apiErr.Code, task.ErrUnauthorized)
		}
		return fmt.Errorf("status %d: %w", apiErr.Code, task.ErrRemoteRequest)
	}
	return fmt.Errorf("%v: %w", err, task.ErrRemoteRequest)
}
