package domain

import (
	"sort"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the three known states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Next returns the state the toggle moves to: pending, in progress, completed, then back.
// Unknown states restart the cycle at pending.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskPending:
		return TaskInProgress
	case TaskInProgress:
		return TaskCompleted
	default:
		return TaskPending
	}
}

// Label is the human form of the status.
func (s TaskStatus) Label() string {
	switch s {
	case TaskInProgress:
		return "In Progress"
	case TaskCompleted:
		return "Completed"
	default:
		return "Pending"
	}
}

// ToggleLabel names the action that moves the task to its next state.
func (s TaskStatus) ToggleLabel() string {
	return "Mark " + s.Next().Label()
}

// Task is a unit of follow-up work.
type Task struct {
	ID             string     `json:"id"`
	TeamID         string     `json:"team_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	Status         TaskStatus `json:"status"`
	OrganisationID *string    `json:"organisation_id"`
	ContactID      *string    `json:"contact_id"`
	AssigneeID     *string    `json:"assignee_id"`
	Organisation   *Ref       `json:"organisation,omitempty"`
	Contact        *Ref       `json:"contact,omitempty"`
	Assignee       *Ref       `json:"assignee,omitempty"`
	Links          []TaskLink `json:"links"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (t Task) EntityID() string { return t.ID }

// Overdue reports an unfinished task whose due date has passed.
func (t Task) Overdue(now time.Time) bool {
	return t.Status != TaskCompleted && t.DueDate != nil && t.DueDate.Before(now)
}

// Upcoming reports an unfinished task that is not overdue, including tasks without a due date.
func (t Task) Upcoming(now time.Time) bool {
	return t.Status != TaskCompleted && (t.DueDate == nil || !t.DueDate.Before(now))
}

// TaskLink is a URL attached to a task.
type TaskLink struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Label returns the link title, or the URL when untitled.
func (l TaskLink) Label() string {
	if l.Title != "" {
		return l.Title
	}
	return l.URL
}

// TaskSections groups tasks the way the task board shows them.
type TaskSections struct {
	Overdue   []Task
	Upcoming  []Task
	Completed []Task
}

// PartitionTasks splits tasks into overdue, upcoming and completed, each ordered by due
// date with undated tasks last. Input order breaks ties.
func PartitionTasks(tasks []Task, now time.Time) TaskSections {
	var out TaskSections
	for _, t := range tasks {
		switch {
		case t.Status == TaskCompleted:
			out.Completed = append(out.Completed, t)
		case t.Overdue(now):
			out.Overdue = append(out.Overdue, t)
		default:
			out.Upcoming = append(out.Upcoming, t)
		}
	}
	for _, section := range [][]Task{out.Overdue, out.Upcoming, out.Completed} {
		sort.SliceStable(section, func(i, j int) bool {
			return dueBefore(section[i].DueDate, section[j].DueDate)
		})
	}
	return out
}

func dueBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}
