package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// Resource is typed CRUD over one API collection.
type Resource[T any, In any] struct {
	c    *Client
	path string
}

// NewResource binds a collection path such as "/organisations".
func NewResource[T any, In any](c *Client, path string) Resource[T, In] {
	return Resource[T, In]{c: c, path: path}
}

// List fetches the collection with the query's filters, order and limit.
func (r Resource[T, In]) List(ctx context.Context, q repository.Query) ([]T, error) {
	path := r.path
	if encoded := q.Encode().Encode(); encoded != "" {
		path += "?" + encoded
	}
	var items []T
	if err := r.c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches one item.
func (r Resource[T, In]) Get(ctx context.Context, id string) (T, error) {
	var item T
	err := r.c.do(ctx, http.MethodGet, r.itemPath(id), nil, &item)
	return item, err
}

// Create posts a new item and returns the stored row.
func (r Resource[T, In]) Create(ctx context.Context, in In) (T, error) {
	var item T
	err := r.c.do(ctx, http.MethodPost, r.path, in, &item)
	return item, err
}

// Update replaces the item's editable fields and returns the stored row.
func (r Resource[T, In]) Update(ctx context.Context, id string, in In) (T, error) {
	var item T
	err := r.c.do(ctx, http.MethodPut, r.itemPath(id), in, &item)
	return item, err
}

// Delete removes the item.
func (r Resource[T, In]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r Resource[T, In]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// OrganisationInput is the editable field set of an organisation.
type OrganisationInput struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Website       string `json:"website"`
	CurrentStatus string `json:"current_status"`
}

// ContactInput is the editable field set of a contact.
type ContactInput struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Role           string  `json:"role"`
	CurrentStatus  string  `json:"current_status"`
	OrganisationID *string `json:"organisation_id"`
}

// TaskInput is the editable field set of a task. A nil AssigneeID on create
// assigns the caller; an empty one leaves the task unassigned.
type TaskInput struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	DueDate        *time.Time        `json:"due_date"`
	Status         domain.TaskStatus `json:"status,omitempty"`
	OrganisationID *string           `json:"organisation_id"`
	ContactID      *string           `json:"contact_id"`
	AssigneeID     *string           `json:"assignee_id,omitempty"`
}

// EventInput is the editable field set of a calendar event.
type EventInput struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	OrganisationID *string   `json:"organisation_id"`
	ContactID      *string   `json:"contact_id"`
	TaskID         *string   `json:"task_id"`
}

// UpdateInput is a new timeline entry.
type UpdateInput struct {
	Type    domain.UpdateType `json:"type"`
	Content string            `json:"content"`
}

// LinkInput attaches a URL to a task.
type LinkInput struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Organisations returns the organisations collection.
func (c *Client) Organisations() Resource[domain.Organisation, OrganisationInput] {
	return NewResource[domain.Organisation, OrganisationInput](c, "/organisations")
}

// Contacts returns the contacts collection.
func (c *Client) Contacts() Resource[domain.Contact, ContactInput] {
	return NewResource[domain.Contact, ContactInput](c, "/contacts")
}

// Tasks returns the tasks collection.
func (c *Client) Tasks() Resource[domain.Task, TaskInput] {
	return NewResource[domain.Task, TaskInput](c, "/tasks")
}

// Events returns the calendar events collection.
func (c *Client) Events() Resource[domain.CalendarEvent, EventInput] {
	return NewResource[domain.CalendarEvent, EventInput](c, "/events")
}

// ToggleTask advances the task to its next status.
func (c *Client) ToggleTask(ctx context.Context, id string) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/toggle", nil, &task)
	return task, err
}

// AddTaskLink attaches a link to a task.
func (c *Client) AddTaskLink(ctx context.Context, taskID string, in LinkInput) (domain.TaskLink, error) {
	var link domain.TaskLink
	err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/links", in, &link)
	return link, err
}

// DeleteTaskLink removes a task link.
func (c *Client) DeleteTaskLink(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/task-links/"+url.PathEscape(id), nil, nil)
}

func timelinePath(parent domain.Kind, parentID string) (string, error) {
	switch parent {
	case domain.KindOrganisation:
		return "/organisations/" + url.PathEscape(parentID) + "/updates", nil
	case domain.KindContact:
		return "/contacts/" + url.PathEscape(parentID) + "/updates", nil
	}
	return "", fmt.Errorf("no timeline for %s", parent)
}

// Updates lists a contact or organisation timeline, newest first.
func (c *Client) Updates(ctx context.Context, parent domain.Kind, parentID string) ([]domain.Update, error) {
	path, err := timelinePath(parent, parentID)
	if err != nil {
		return nil, err
	}
	var updates []domain.Update
	if err := c.do(ctx, http.MethodGet, path, nil, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// AddUpdate appends a timeline entry and returns it.
func (c *Client) AddUpdate(ctx context.Context, parent domain.Kind, parentID string, in UpdateInput) (domain.Update, error) {
	path, err := timelinePath(parent, parentID)
	if err != nil {
		return domain.Update{}, err
	}
	var update domain.Update
	err = c.do(ctx, http.MethodPost, path, in, &update)
	return update, err
}

// DeleteOrganisationUpdate removes one organisation timeline entry.
func (c *Client) DeleteOrganisationUpdate(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/organisation-updates/"+url.PathEscape(id), nil, nil)
}

// RecordView upserts the recent-view marker for an entity.
func (c *Client) RecordView(ctx context.Context, kind domain.Kind, id string) error {
	body := map[string]string{"item_type": string(kind), "item_id": id}
	return c.do(ctx, http.MethodPost, "/recent-views", body, nil)
}

// RecentViews lists the caller's latest views.
func (c *Client) RecentViews(ctx context.Context, limit int) ([]domain.RecentView, error) {
	path := "/recent-views"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var views []domain.RecentView
	if err := c.do(ctx, http.MethodGet, path, nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}
