// Package report builds the organisation status digest and its PDF export.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/splax/cornerstone/internal/domain"
)

// NoStatus is shown for organisations without a current status.
const NoStatus = "No status provided"

// Definition describes a report offered on the reports screen.
type Definition struct {
	ID          string
	Title       string
	Description string
}

// CurrentStatus is the organisation status report.
var CurrentStatus = Definition{
	ID:          "current-status",
	Title:       "Current Status Report",
	Description: "Overview of current status for all organisations",
}

// Catalogue lists every available report.
var Catalogue = []Definition{CurrentStatus}

// Entry is one organisation in the digest.
type Entry struct {
	OrganisationID string `json:"organisation_id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
}

// HasStatus reports whether the organisation has a non-blank status.
func (e Entry) HasStatus() bool {
	return strings.TrimSpace(e.Status) != ""
}

// StatusText returns the status or the fallback text.
func (e Entry) StatusText() string {
	if e.HasStatus() {
		return e.Status
	}
	return NoStatus
}

// Digest is the read-only status report.
type Digest struct {
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	Entries     []Entry   `json:"entries"`
}

// Build turns organisations, already ordered by name, into a digest.
func Build(orgs []domain.Organisation, now time.Time) Digest {
	entries := make([]Entry, 0, len(orgs))
	for _, o := range orgs {
		entries = append(entries, Entry{OrganisationID: o.ID, Name: o.Name, Status: o.CurrentStatus})
	}
	return Digest{Title: CurrentStatus.Title, GeneratedAt: now, Entries: entries}
}

// GeneratedLine is the subtitle printed under the report title.
func (d Digest) GeneratedLine() string {
	return "Generated on " + d.GeneratedAt.Format("02/01/2006")
}

// Markdown renders the digest for terminal display.
func (d Digest) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n_%s_\n\n", d.Title, d.GeneratedLine())
	if len(d.Entries) == 0 {
		b.WriteString("No organisations found\n")
		return b.String()
	}
	for i, e := range d.Entries {
		fmt.Fprintf(&b, "## %s\n\n", e.Name)
		if e.HasStatus() {
			fmt.Fprintf(&b, "%s\n\n", e.Status)
		} else {
			fmt.Fprintf(&b, "_%s_\n\n", NoStatus)
		}
		if i < len(d.Entries)-1 {
			b.WriteString("---\n\n")
		}
	}
	return b.String()
}
