package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"zerotouch-micropolicy/internal/domain/policies"
)

type PoliciesRepo struct {
	db *sql.DB
}

func NewPoliciesRepo(db *sql.DB) *PoliciesRepo {
	return &PoliciesRepo{db: db}
}

const policyColumns = `
	id, owner_user_id,
	policy_type, name, price,
	status, ledger_ref,
	purchased_at, paid_at, paid_amount, event_description, cancelled_at
`

func (r *PoliciesRepo) Create(ctx context.Context, p policies.Policy) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO policies (`+policyColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		p.ID,
		p.OwnerUserID,
		string(p.PolicyType),
		p.Name,
		p.Price,
		string(p.Status),
		p.LedgerRef,
		p.PurchasedAt,
		toNullTime(p.PaidAt),
		toNullFloat(p.PaidAmount),
		p.EventDescription,
		toNullTime(p.CancelledAt),
	)
	return err
}

func (r *PoliciesRepo) GetByID(ctx context.Context, id string) (policies.Policy, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return policies.Policy{}, policies.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+policyColumns+`
		FROM policies
		WHERE id = $1
	`, id)

	p, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return policies.Policy{}, policies.ErrNotFound
		}
		return policies.Policy{}, err
	}
	return p, nil
}

func (r *PoliciesRepo) ListByOwner(ctx context.Context, ownerUserID string, f policies.ListFilter) ([]policies.Policy, int, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, 0, nil
	}
	return r.list(ctx, ownerUserID, f)
}

func (r *PoliciesRepo) List(ctx context.Context, f policies.ListFilter) ([]policies.Policy, int, error) {
	return r.list(ctx, "", f)
}

// list arma la query con filtros opcionales, como hace el listado de eventos:
// placeholders posicionales acumulados sobre un strings.Builder.
func (r *PoliciesRepo) list(ctx context.Context, owner string, f policies.ListFilter) ([]policies.Policy, int, error) {
	where := strings.Builder{}
	where.WriteString(" WHERE 1=1")
	args := []any{}
	argN := 1

	if owner != "" {
		where.WriteString(fmt.Sprintf(" AND owner_user_id = $%d", argN))
		args = append(args, owner)
		argN++
	}
	if f.Status != "" {
		where.WriteString(fmt.Sprintf(" AND status = $%d", argN))
		args = append(args, string(f.Status))
		argN++
	}
	if f.PolicyType != "" {
		where.WriteString(fmt.Sprintf(" AND policy_type = $%d", argN))
		args = append(args, string(f.PolicyType))
		argN++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM policies"+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(f.Page, f.Limit)
	q := "SELECT " + policyColumns + " FROM policies" + where.String() +
		fmt.Sprintf(" ORDER BY purchased_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]policies.Policy, 0)
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Cancel hace el check de status como predicado del UPDATE: una cancelación
// corriendo contra un payout nunca pisa un estado terminal.
func (r *PoliciesRepo) Cancel(ctx context.Context, id, ownerUserID string, at time.Time) (policies.Policy, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE policies
		SET status = 'cancelled', cancelled_at = $3
		WHERE id = $1 AND owner_user_id = $2 AND status = 'active'
		RETURNING `+policyColumns+`
	`, id, ownerUserID, at)

	p, err := scanPolicy(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return policies.Policy{}, err
	}

	// cero filas: distinguir not-found de not-active
	existing, gerr := r.GetByID(ctx, id)
	if gerr != nil || existing.OwnerUserID != ownerUserID {
		return policies.Policy{}, policies.ErrNotFound
	}
	return policies.Policy{}, policies.ErrNotActive
}

func (r *PoliciesRepo) ListPaidSince(ctx context.Context, ownerUserID string, since time.Time) ([]policies.Policy, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+policyColumns+`
		FROM policies
		WHERE owner_user_id = $1 AND status = 'paid' AND paid_at >= $2
		ORDER BY paid_at DESC
	`, ownerUserID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]policies.Policy, 0)
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PoliciesRepo) Stats(ctx context.Context, ownerUserID string, since time.Time) (policies.Stats, error) {
	st := policies.Stats{
		ByStatus: map[policies.Status]policies.StatusStat{},
		ByType:   map[policies.PolicyType]policies.TypeStat{},
	}

	owner := strings.TrimSpace(ownerUserID)

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(price), 0)
		FROM policies
		WHERE ($1 = '' OR owner_user_id = $1)
		GROUP BY status
	`, owner)
	if err != nil {
		return policies.Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var s policies.StatusStat
		if err := rows.Scan(&status, &s.Count, &s.TotalAmount); err != nil {
			return policies.Stats{}, err
		}
		st.ByStatus[policies.Status(status)] = s
	}
	if err := rows.Err(); err != nil {
		return policies.Stats{}, err
	}

	trows, err := r.db.QueryContext(ctx, `
		SELECT policy_type, COUNT(*), COALESCE(SUM(price), 0)
		FROM policies
		WHERE ($1 = '' OR owner_user_id = $1)
		GROUP BY policy_type
	`, owner)
	if err != nil {
		return policies.Stats{}, err
	}
	defer trows.Close()
	for trows.Next() {
		var pt string
		var s policies.TypeStat
		if err := trows.Scan(&pt, &s.Count, &s.Revenue); err != nil {
			return policies.Stats{}, err
		}
		st.ByType[policies.PolicyType(pt)] = s
	}
	if err := trows.Err(); err != nil {
		return policies.Stats{}, err
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE purchased_at >= $2),
			COALESCE(SUM(paid_amount) FILTER (WHERE status = 'paid'), 0)
		FROM policies
		WHERE ($1 = '' OR owner_user_id = $1)
	`, owner, since).Scan(&st.PurchasedSince, &st.PaidOutAmount)
	if err != nil {
		return policies.Stats{}, err
	}

	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (policies.Policy, error) {
	var p policies.Policy
	var pt, status string
	var paidAt, cancelledAt sql.NullTime
	var paidAmount sql.NullFloat64

	if err := row.Scan(
		&p.ID,
		&p.OwnerUserID,
		&pt,
		&p.Name,
		&p.Price,
		&status,
		&p.LedgerRef,
		&p.PurchasedAt,
		&paidAt,
		&paidAmount,
		&p.EventDescription,
		&cancelledAt,
	); err != nil {
		return policies.Policy{}, err
	}

	p.PolicyType = policies.PolicyType(pt)
	p.Status = policies.Status(status)
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	if paidAmount.Valid {
		v := paidAmount.Float64
		p.PaidAmount = &v
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		p.CancelledAt = &t
	}
	return p, nil
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func toNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}
