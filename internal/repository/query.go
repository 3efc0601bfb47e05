package repository

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Op is a filter comparison.
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpIlike Op = "ilike"
	OpIs    Op = "is"
)

func (o Op) valid() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpIlike, OpIs:
		return true
	}
	return false
}

// Filter restricts a listing to rows where Field compares to Value.
// For OpIs the value is "null" or "notnull".
type Filter struct {
	Field string
	Op    Op
	Value string
}

// Query describes a filtered, ordered, limited listing.
type Query struct {
	Filters []Filter
	Order   string
	Desc    bool
	Limit   int
}

// Where appends a filter and returns the query for chaining.
func (q Query) Where(field string, op Op, value string) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderBy sets the sort column.
func (q Query) OrderBy(field string, desc bool) Query {
	q.Order = field
	q.Desc = desc
	return q
}

// WithLimit caps the number of rows.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Reserved query parameter names; every other parameter is a filter.
const (
	paramOrder = "order"
	paramLimit = "limit"
)

// ParseQuery reads filters of the form field=op.value plus order=field[.desc] and limit=N.
func ParseQuery(values url.Values) (Query, error) {
	var q Query
	for field, raws := range values {
		switch field {
		case paramOrder:
			order := strings.TrimSpace(values.Get(paramOrder))
			if name, dir, ok := strings.Cut(order, "."); ok {
				switch dir {
				case "asc":
				case "desc":
					q.Desc = true
				default:
					return Query{}, fmt.Errorf("%w: order direction %q", ErrInvalidArgument, dir)
				}
				order = name
			}
			q.Order = order
			continue
		case paramLimit:
			n, err := strconv.Atoi(values.Get(paramLimit))
			if err != nil || n < 0 {
				return Query{}, fmt.Errorf("%w: limit must be a non-negative integer", ErrInvalidArgument)
			}
			q.Limit = n
			continue
		}
		for _, raw := range raws {
			filter, err := ParseFilter(field, raw)
			if err != nil {
				return Query{}, err
			}
			q.Filters = append(q.Filters, filter)
		}
	}
	return q, nil
}

// ParseFilter parses "op.value" for field.
func ParseFilter(field, raw string) (Filter, error) {
	op, value, ok := strings.Cut(raw, ".")
	if !ok || !Op(op).valid() {
		return Filter{}, fmt.Errorf("%w: filter %s=%q", ErrInvalidArgument, field, raw)
	}
	if Op(op) == OpIs && value != "null" && value != "notnull" {
		return Filter{}, fmt.Errorf("%w: is filter expects null or notnull", ErrInvalidArgument)
	}
	return Filter{Field: field, Op: Op(op), Value: value}, nil
}

// Encode renders the query back into URL parameters.
func (q Query) Encode() url.Values {
	values := url.Values{}
	for _, f := range q.Filters {
		values.Add(f.Field, string(f.Op)+"."+f.Value)
	}
	if q.Order != "" {
		order := q.Order
		if q.Desc {
			order += ".desc"
		}
		values.Set(paramOrder, order)
	}
	if q.Limit > 0 {
		values.Set(paramLimit, strconv.Itoa(q.Limit))
	}
	return values
}

// ContainsPattern builds a case-insensitive substring pattern for OpIlike, escaping wildcards.
func ContainsPattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}
