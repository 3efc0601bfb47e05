package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository         = (*Repository)(nil)
	_ repository.SessionRepository      = (*Repository)(nil)
	_ repository.ProfileRepository      = (*Repository)(nil)
	_ repository.TeamRepository         = (*Repository)(nil)
	_ repository.OrganisationRepository = (*Repository)(nil)
	_ repository.ContactRepository      = (*Repository)(nil)
	_ repository.TaskRepository         = (*Repository)(nil)
	_ repository.EventRepository        = (*Repository)(nil)
	_ repository.UpdateRepository       = (*Repository)(nil)
	_ repository.RecentViewRepository   = (*Repository)(nil)
)

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pgErr.ConstraintName)
		case "23505", "23514", "22P02", "22007", "22008":
			return fmt.Errorf("%w: %s", repository.ErrInvalidArgument, pgErr.Message)
		}
	}
	return err
}

// expectRows turns a zero-row mutation into ErrNotFound.
func expectRows(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type colKind int

const (
	colText colKind = iota
	colUUID
	colTime
)

// column maps a public filter/order field onto its SQL expression.
type column struct {
	expr string
	kind colKind
}

type columnSet map[string]column

func (c column) convert(raw string) (any, error) {
	switch c.kind {
	case colTime:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an RFC3339 timestamp", repository.ErrInvalidArgument, raw)
		}
		return t, nil
	case colUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a uuid", repository.ErrInvalidArgument, raw)
		}
		return id.String(), nil
	default:
		return raw, nil
	}
}

var comparisons = map[repository.Op]string{
	repository.OpEq:  "=",
	repository.OpNeq: "<>",
	repository.OpLt:  "<",
	repository.OpLte: "<=",
	repository.OpGt:  ">",
	repository.OpGte: ">=",
}

// listSQL appends WHERE, ORDER BY and LIMIT clauses for q to base. The first
// placeholder is always the team id.
func (cs columnSet) listSQL(base, teamExpr, teamID string, q repository.Query, fallbackOrder string) (string, []any, error) {
	args := []any{teamID}
	clauses := []string{teamExpr + " = $1"}
	for _, f := range q.Filters {
		col, ok := cs[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: cannot filter on %q", repository.ErrInvalidArgument, f.Field)
		}
		if f.Op == repository.OpIs {
			if f.Value == "null" {
				clauses = append(clauses, col.expr+" IS NULL")
			} else {
				clauses = append(clauses, col.expr+" IS NOT NULL")
			}
			continue
		}
		if f.Op == repository.OpIlike {
			if col.kind != colText {
				return "", nil, fmt.Errorf("%w: ilike on non-text field %q", repository.ErrInvalidArgument, f.Field)
			}
			args = append(args, f.Value)
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", col.expr, len(args)))
			continue
		}
		cmp, ok := comparisons[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("%w: operator %q", repository.ErrInvalidArgument, f.Op)
		}
		value, err := col.convert(f.Value)
		if err != nil {
			return "", nil, err
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", col.expr, cmp, len(args)))
	}

	orderField := q.Order
	if orderField == "" {
		orderField = fallbackOrder
	}
	orderCol, ok := cs[orderField]
	if !ok {
		return "", nil, fmt.Errorf("%w: cannot order by %q", repository.ErrInvalidArgument, orderField)
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(clauses, " AND "))
	fmt.Fprintf(&b, " ORDER BY %s %s, %s", orderCol.expr, dir, cs["id"].expr)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args, nil
}

// ref builds an expanded relation from nullable id/name columns.
func ref(id, name *string) *domain.Ref {
	if id == nil {
		return nil
	}
	r := &domain.Ref{ID: *id}
	if name != nil {
		r.Name = *name
	}
	return r
}

// nullableUUID passes nil for empty optional foreign keys.
func nullableUUID(id *string) any {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	return *id
}

// collect never returns a nil slice so handlers encode [] rather than null.
func collect[T any](rows pgx.Rows, fn pgx.RowToFunc[T]) ([]T, error) {
	out, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, mapError(err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
