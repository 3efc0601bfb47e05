// Package search is the global organisation and contact lookup behind the search popover.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// PerKind caps the results fetched for each entity type.
const PerKind = 5

// NoResultsText is shown for a non-empty query without hits.
const NoResultsText = "No results found"

// Lister is the list side of an API collection.
type Lister[T any] interface {
	List(ctx context.Context, q repository.Query) ([]T, error)
}

// Result is one row of the popover.
type Result struct {
	Kind     domain.Kind
	ID       string
	Title    string
	Subtitle string
}

// Searcher queries organisations and contacts by name.
type Searcher struct {
	orgs     Lister[domain.Organisation]
	contacts Lister[domain.Contact]
}

// New builds a searcher over the two collections.
func New(orgs Lister[domain.Organisation], contacts Lister[domain.Contact]) Searcher {
	return Searcher{orgs: orgs, contacts: contacts}
}

// Query returns the case-insensitive substring listing used for a term.
func Query(term string) repository.Query {
	return repository.Query{}.
		Where("name", repository.OpIlike, repository.ContainsPattern(term)).
		OrderBy("name", false).
		WithLimit(PerKind)
}

// Search runs both lookups concurrently and merges them, organisations first.
// A blank term returns no results without contacting the server.
func (s Searcher) Search(ctx context.Context, term string) ([]Result, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	q := Query(term)

	var (
		orgs     []domain.Organisation
		contacts []domain.Contact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orgs, err = s.orgs.List(gctx, q)
		if err != nil {
			return fmt.Errorf("search organisations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		contacts, err = s.contacts.List(gctx, q)
		if err != nil {
			return fmt.Errorf("search contacts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(term, orgs, contacts), nil
}

// Merge converts and ranks both groups. Organisations always precede contacts.
func Merge(term string, orgs []domain.Organisation, contacts []domain.Contact) []Result {
	results := make([]Result, 0, len(orgs)+len(contacts))

	orgRows := make([]Result, 0, len(orgs))
	for i, o := range orgs {
		if i == PerKind {
			break
		}
		orgRows = append(orgRows, Result{Kind: domain.KindOrganisation, ID: o.ID, Title: o.Name})
	}
	results = append(results, rank(term, orgRows)...)

	contactRows := make([]Result, 0, len(contacts))
	for i, c := range contacts {
		if i == PerKind {
			break
		}
		subtitle := c.OrganisationName()
		if subtitle == "" {
			subtitle = c.Role
		}
		contactRows = append(contactRows, Result{Kind: domain.KindContact, ID: c.ID, Title: c.Name, Subtitle: subtitle})
	}
	return append(results, rank(term, contactRows)...)
}

// rank orders a group by fuzzy score. Rows the matcher skips keep their server order at the end.
func rank(term string, rows []Result) []Result {
	if len(rows) < 2 {
		return rows
	}
	titles := make([]string, len(rows))
	for i, r := range rows {
		titles[i] = r.Title
	}
	matches := fuzzy.Find(term, titles)
	out := make([]Result, 0, len(rows))
	seen := make([]bool, len(rows))
	for _, m := range matches {
		out = append(out, rows[m.Index])
		seen[m.Index] = true
	}
	for i, r := range rows {
		if !seen[i] {
			out = append(out, r)
		}
	}
	return out
}
