package google

import (
	"context"
	"fmt"

	"github.com/doneboard/doneboard/pkg/task"
	"github.com/doneboard/doneboard/pkg/user"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type CalendarItem struct {
	ID      string
	Summary string
}

type Service interface {
	// TaskStore returns the Remote Store Client bound to the current user's
	// configured calendar.
	TaskStore(ctx context.Context) (task.EventStore, error)
	ListCalendars(ctx context.Context) ([]CalendarItem, error)
}

type ServiceImpl struct {
	auth *GoogleAuth
}

func NewService(auth *GoogleAuth) *ServiceImpl {
	return &ServiceImpl{
		auth: auth,
	}
}

func (s *ServiceImpl) TaskStore(ctx context.Context) (task.EventStore, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	service, err := s.prepareGoogleService(ctx, currentUser.Id)
	if err != nil {
		return nil, err
	}

	calendarId := currentUser.Settings.GoogleCalendar.CalendarId
	if calendarId == "" {
		calendarId = "primary"
	}
	return newEventStore(service, calendarId), nil
}

func (s *ServiceImpl) ListCalendars(ctx context.Context) ([]CalendarItem, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	googleService, err := s.prepareGoogleService(ctx, userId)
	if err != nil {
		return nil, err
	}
	calendars, err := googleService.CalendarList.List().Do()
	if err != nil {
		err := fmt.Errorf("unable to retrieve calendars from Google Calendar: %w", classifyError(err))
		log.Error(err)
		return nil, err
	}
	var googleCalendars []CalendarItem
	for _, cal := range calendars.Items {
		googleCalendars = append(googleCalendars, CalendarItem{
			ID:      cal.Id,
			Summary: cal.Summary,
		})
	}
	return googleCalendars, nil
}

func (s *ServiceImpl) prepareGoogleService(ctx context.Context, userId int) (*calendar.Service, error) {
	client, err := s.auth.getClient(ctx, userId)
	if err != nil {
		err := fmt.Errorf("unable to retrieve Google auth client: %v", err)
		log.Error(err)
		return nil, err
	}
	if client == nil {
		log.Debug("user is unauthenticated, authentication is required")
		return nil, fmt.Errorf("no Google credential stored: %w", task.ErrUnauthorized)
	}
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		err := fmt.Errorf("unable to create Calendar client: %v", err)
		log.Error(err)
		return nil, err
	}

	return service, nil
}
