// Package calsync mirrors CRM calendar events into a Google Calendar.
package calsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/splax/cornerstone/internal/domain"
)

// propertyKey is the private extended property holding the CRM event id.
const propertyKey = "cornerstone_event_id"

// Mirror writes events to one Google calendar using a service account.
type Mirror struct {
	srv        *calendar.Service
	calendarID string
	logger     *slog.Logger
}

// New reads service-account credentials from credsFile and builds a Mirror for calendarID.
func New(ctx context.Context, credsFile, calendarID string, logger *slog.Logger) (*Mirror, error) {
	data, err := os.ReadFile(credsFile)
	if err != nil {
		return nil, fmt.Errorf("read calendar credentials: %w", err)
	}
	jwtCfg, err := google.JWTConfigFromJSON(data, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse calendar credentials: %w", err)
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar client: %w", err)
	}
	return &Mirror{srv: srv, calendarID: calendarID, logger: logger}, nil
}

// Upsert patches the mirrored copy of ev, or inserts one when none exists.
func (m *Mirror) Upsert(ctx context.Context, ev domain.CalendarEvent) error {
	existing, err := m.find(ctx, ev.ID)
	if err != nil {
		return err
	}
	body := ToGoogle(ev)
	if existing != nil {
		if _, err := m.srv.Events.Patch(m.calendarID, existing.Id, body).Context(ctx).Do(); err != nil {
			return fmt.Errorf("patch calendar event: %w", err)
		}
		m.logger.Debug("calendar mirror patched", "event_id", ev.ID, "google_id", existing.Id)
		return nil
	}
	created, err := m.srv.Events.Insert(m.calendarID, body).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	m.logger.Debug("calendar mirror inserted", "event_id", ev.ID, "google_id", created.Id)
	return nil
}

// Remove deletes the mirrored copy of the event, if any.
func (m *Mirror) Remove(ctx context.Context, eventID string) error {
	existing, err := m.find(ctx, eventID)
	if err != nil || existing == nil {
		return err
	}
	if err := m.srv.Events.Delete(m.calendarID, existing.Id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

func (m *Mirror) find(ctx context.Context, eventID string) (*calendar.Event, error) {
	events, err := m.srv.Events.List(m.calendarID).
		PrivateExtendedProperty(propertyKey + "=" + eventID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search calendar event: %w", err)
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

// ToGoogle converts a CRM event into its Google Calendar form.
func ToGoogle(ev domain.CalendarEvent) *calendar.Event {
	var notes []string
	if ev.Description != "" {
		notes = append(notes, ev.Description)
	}
	if ev.Organisation != nil && ev.Organisation.Name != "" {
		notes = append(notes, "Organisation: "+ev.Organisation.Name)
	}
	if ev.Contact != nil && ev.Contact.Name != "" {
		notes = append(notes, "Contact: "+ev.Contact.Name)
	}
	if ev.Task != nil && ev.Task.Name != "" {
		notes = append(notes, "Task: "+ev.Task.Name)
	}
	return &calendar.Event{
		Summary:     ev.Title,
		Description: strings.Join(notes, "\n"),
		Start:       &calendar.EventDateTime{DateTime: ev.StartTime.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: ev.EndTime.UTC().Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{propertyKey: ev.ID},
		},
	}
}
