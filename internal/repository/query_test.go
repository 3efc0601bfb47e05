package repository

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseQuery(t *testing.T) {
	values := url.Values{}
	values.Set("status", "neq.completed")
	values.Set("due_date", "lt.2024-05-01T00:00:00Z")
	values.Set("order", "due_date.desc")
	values.Set("limit", "5")

	q, err := ParseQuery(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Order != "due_date" || !q.Desc || q.Limit != 5 {
		t.Fatalf("unexpected ordering/limit: %+v", q)
	}
	if len(q.Filters) != 2 {
		t.Fatalf("expected two filters, got %d", len(q.Filters))
	}
	for _, f := range q.Filters {
		switch f.Field {
		case "status":
			if f.Op != OpNeq || f.Value != "completed" {
				t.Fatalf("unexpected status filter %+v", f)
			}
		case "due_date":
			if f.Op != OpLt || f.Value != "2024-05-01T00:00:00Z" {
				t.Fatalf("unexpected due filter %+v", f)
			}
		default:
			t.Fatalf("unexpected filter %+v", f)
		}
	}
}

func TestParseQueryRejectsBadInput(t *testing.T) {
	cases := []url.Values{
		{"name": {"like.acme"}},
		{"name": {"acme"}},
		{"organisation_id": {"is.empty"}},
		{"limit": {"-1"}},
		{"order": {"name.sideways"}},
	}
	for _, values := range cases {
		if _, err := ParseQuery(values); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected invalid argument for %v, got %v", values, err)
		}
	}
}

func TestEncodeRoundTripsThroughParse(t *testing.T) {
	q := Query{}.Where("name", OpIlike, ContainsPattern("ac_me")).OrderBy("name", false).WithLimit(5)
	parsed, err := ParseQuery(q.Encode())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Filters) != 1 || parsed.Filters[0].Value != `%ac\_me%` {
		t.Fatalf("unexpected filters %+v", parsed.Filters)
	}
	if parsed.Order != "name" || parsed.Limit != 5 {
		t.Fatalf("unexpected query %+v", parsed)
	}
}
