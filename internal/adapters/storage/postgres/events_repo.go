package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"zerotouch-micropolicy/internal/domain/events"
	"zerotouch-micropolicy/internal/domain/policies"
)

type EventsRepo struct {
	db *sql.DB
}

func NewEventsRepo(db *sql.DB) *EventsRepo {
	return &EventsRepo{db: db}
}

const eventColumns = `
	id, event_type, description, triggered_by,
	affected_policy_ids, total_payout, users_affected,
	is_blocked, created_at
`

func (r *EventsRepo) Record(ctx context.Context, e events.Event) error {
	return r.insert(ctx, r.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *EventsRepo) insert(ctx context.Context, ex execer, e events.Event) error {
	ids := e.AffectedPolicyIDs
	if ids == nil {
		ids = []string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		e.ID,
		string(e.EventType),
		e.Description,
		e.TriggeredBy,
		idsJSON,
		e.TotalPayout,
		e.UsersAffected,
		e.IsBlocked,
		e.CreatedAt,
	)
	return err
}

// RecordWithPayout ejecuta el flip condicional de pólizas y el insert del
// evento en una sola transacción: ante cualquier error se hace rollback y no
// queda payout parcial. El predicado status='active' del UPDATE es el CAS
// que evita doble pago contra cancelaciones u otros eventos concurrentes.
func (r *EventsRepo) RecordWithPayout(ctx context.Context, e events.Event, cover policies.PolicyType) (events.Event, []policies.Policy, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return events.Event{}, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		UPDATE policies
		SET status = 'paid',
			paid_at = $2,
			paid_amount = price,
			event_description = $3
		WHERE policy_type = $1 AND status = 'active'
		RETURNING `+policyColumns+`
	`, string(cover), e.CreatedAt, e.Description)
	if err != nil {
		return events.Event{}, nil, err
	}

	affected := make([]policies.Policy, 0)
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			rows.Close()
			return events.Event{}, nil, err
		}
		affected = append(affected, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return events.Event{}, nil, err
	}
	rows.Close()

	ev := events.Summarize(e, affected)
	if err := r.insert(ctx, tx, ev); err != nil {
		return events.Event{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return events.Event{}, nil, err
	}
	return ev, affected, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (events.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return events.Event{}, errors.New("event not found")
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = $1
	`, id)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return events.Event{}, errors.New("event not found")
		}
		return events.Event{}, err
	}
	return e, nil
}

func (r *EventsRepo) List(ctx context.Context, f events.ListFilter) ([]events.Event, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argN := 1

	if f.EventType != "" {
		where += fmt.Sprintf(" AND event_type = $%d", argN)
		args = append(args, string(f.EventType))
		argN++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(f.Page, f.Limit)
	q := "SELECT " + eventColumns + " FROM events" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]events.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *EventsRepo) Stats(ctx context.Context, since time.Time) (events.Stats, error) {
	var st events.Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COUNT(*) FILTER (WHERE is_blocked)
		FROM events
	`, since).Scan(&st.Total, &st.CreatedSince, &st.Blocked)
	if err != nil {
		return events.Stats{}, err
	}
	return st, nil
}

func scanEvent(row rowScanner) (events.Event, error) {
	var e events.Event
	var et string
	var idsJSON []byte

	if err := row.Scan(
		&e.ID,
		&et,
		&e.Description,
		&e.TriggeredBy,
		&idsJSON,
		&e.TotalPayout,
		&e.UsersAffected,
		&e.IsBlocked,
		&e.CreatedAt,
	); err != nil {
		return events.Event{}, err
	}

	e.EventType = events.EventType(et)
	if len(idsJSON) > 0 {
		if err := json.Unmarshal(idsJSON, &e.AffectedPolicyIDs); err != nil {
			return events.Event{}, err
		}
	}
	if e.AffectedPolicyIDs == nil {
		e.AffectedPolicyIDs = []string{}
	}
	return e, nil
}
