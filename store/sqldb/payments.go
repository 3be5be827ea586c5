package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/rent-ledger/ledger"
)

// =============================================================================
// PAYMENT STORE (ledger.Store interface)
// =============================================================================

const paymentColumns = `id, tenant_id, property_id, amount, late_fee, due_date, paid_date,
	period_start, period_end, status, method, description, transaction_id, notes,
	attachments_json, created_by, updated_by, created_at, updated_at`

// CreatePayment inserts a new payment. Reminders on p are ignored.
func (s *Store) CreatePayment(ctx context.Context, p ledger.Payment) error {
	attachments, err := encodeAttachments(p.Attachments)
	if err != nil {
		return err
	}

	query := s.rebind(`INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.TenantID, p.PropertyID,
		p.Amount.String(), p.LateFee.String(),
		formatTime(p.DueDate), nullTime(p.PaidDate),
		formatTime(p.Period.Start), formatTime(p.Period.End),
		p.Status, p.Method, p.Description, p.TransactionID, p.Notes,
		attachments, p.CreatedBy, p.UpdatedBy,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &ledger.ConflictError{PaymentID: p.ID, Op: "create"}
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPayment loads a payment with its reminders.
func (s *Store) GetPayment(ctx context.Context, id ledger.PaymentID) (*ledger.Payment, error) {
	query := s.rebind(`SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`)

	p, err := scanPayment(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	reminders, err := s.loadReminders(ctx, `payment_id = ?`, id)
	if err != nil {
		return nil, err
	}
	p.Reminders = reminders[p.ID]
	return &p, nil
}

// UpdatePayment overwrites the mutable columns if the stored status still
// folds to expected. Legacy spellings of expected match too.
func (s *Store) UpdatePayment(ctx context.Context, p ledger.Payment, expected ledger.Status) error {
	attachments, err := encodeAttachments(p.Attachments)
	if err != nil {
		return err
	}

	forms := storedForms(expected)
	query := s.rebind(`UPDATE payments SET
			tenant_id = ?, property_id = ?, amount = ?, late_fee = ?, due_date = ?, paid_date = ?,
			period_start = ?, period_end = ?, status = ?, method = ?, description = ?,
			transaction_id = ?, notes = ?, attachments_json = ?, updated_by = ?, updated_at = ?
		WHERE id = ? AND status IN (` + placeholders(len(forms)) + `)`)

	args := []any{
		p.TenantID, p.PropertyID, p.Amount.String(), p.LateFee.String(),
		formatTime(p.DueDate), nullTime(p.PaidDate),
		formatTime(p.Period.Start), formatTime(p.Period.End),
		p.Status, p.Method, p.Description, p.TransactionID, p.Notes,
		attachments, p.UpdatedBy, formatTime(p.UpdatedAt),
		p.ID,
	}
	for _, f := range forms {
		args = append(args, f)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if n == 0 {
		return s.missOrConflict(ctx, s.db, p.ID, "update")
	}
	return nil
}

// DeletePayment removes the payment and its reminders.
func (s *Store) DeletePayment(ctx context.Context, id ledger.PaymentID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM payment_reminders WHERE payment_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete reminders: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM payments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrPaymentNotFound
	}
	return tx.Commit()
}

// ListPayments returns matching payments, newest due date first.
func (s *Store) ListPayments(ctx context.Context, f ledger.Filter) ([]ledger.Payment, error) {
	where, args := filterClause(f)

	query := s.rebind(`SELECT ` + paymentColumns + ` FROM payments` + where + ` ORDER BY due_date DESC, id ASC`)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}

	reminders, err := s.loadReminders(ctx, `payment_id IN (SELECT id FROM payments`+where+`)`, args...)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		payments[i].Reminders = reminders[payments[i].ID]
	}
	return payments, nil
}

// AppendReminder appends r in one statement. The row is only written if no
// existing reminder is later than r, and seq is computed in the same
// statement, so a read-modify-write of the reminder list never happens.
func (s *Store) AppendReminder(ctx context.Context, id ledger.PaymentID, r ledger.Reminder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sentAt := formatTime(r.SentAt)
	query := s.rebind(`
		INSERT INTO payment_reminders (payment_id, seq, sent_at, sent_by, method)
		SELECT p.id,
		       (SELECT COALESCE(MAX(r.seq), 0) + 1 FROM payment_reminders r WHERE r.payment_id = p.id),
		       ?, ?, ?
		FROM payments p
		WHERE p.id = ?
		  AND NOT EXISTS (
		      SELECT 1 FROM payment_reminders r WHERE r.payment_id = p.id AND r.sent_at > ?
		  )
	`)
	res, err := tx.ExecContext(ctx, query, sentAt, r.SentBy, r.Method, id, sentAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &ledger.ConflictError{PaymentID: id, Op: "append reminder"}
		}
		return fmt.Errorf("failed to append reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to append reminder: %w", err)
	}
	if n == 0 {
		return s.missOrConflict(ctx, tx, id, "append reminder")
	}

	if err := s.touch(ctx, tx, id, r); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return &ledger.ConflictError{PaymentID: id, Op: "append reminder"}
		}
		return fmt.Errorf("failed to commit reminder: %w", err)
	}
	return nil
}

func (s *Store) touch(ctx context.Context, db execer, id ledger.PaymentID, r ledger.Reminder) error {
	_, err := db.ExecContext(ctx,
		s.rebind(`UPDATE payments SET updated_at = ? WHERE id = ?`),
		formatTime(r.SentAt), id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch payment: %w", err)
	}
	return nil
}

// missOrConflict tells a missing row apart from a lost race after a
// conditional write touched nothing. Inside a transaction q must be the
// transaction: SQLite runs on a single connection.
func (s *Store) missOrConflict(ctx context.Context, q querier, id ledger.PaymentID, op string) error {
	var one int
	err := q.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM payments WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrPaymentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check payment: %w", err)
	}
	return &ledger.ConflictError{PaymentID: id, Op: op}
}

func (s *Store) loadReminders(ctx context.Context, where string, args ...any) (map[ledger.PaymentID][]ledger.Reminder, error) {
	query := s.rebind(`SELECT payment_id, sent_at, sent_by, method FROM payment_reminders
		WHERE ` + where + ` ORDER BY payment_id, seq`)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	out := make(map[ledger.PaymentID][]ledger.Reminder)
	for rows.Next() {
		var (
			id     ledger.PaymentID
			sentAt string
			r      ledger.Reminder
		)
		if err := rows.Scan(&id, &sentAt, &r.SentBy, &r.Method); err != nil {
			return nil, err
		}
		if r.SentAt, err = parseTime(sentAt); err != nil {
			return nil, err
		}
		out[id] = append(out[id], r)
	}
	return out, rows.Err()
}

// =============================================================================
// Filtering
// =============================================================================

func filterClause(f ledger.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != "" {
		conds = append(conds, "created_by = ?")
		args = append(args, f.OwnerID)
	}
	if f.TenantID != "" {
		conds = append(conds, "tenant_id = ?")
		args = append(args, f.TenantID)
	}
	if f.PropertyID != "" {
		conds = append(conds, "property_id = ?")
		args = append(args, f.PropertyID)
	}
	if len(f.Statuses) > 0 {
		var forms []string
		for _, st := range f.Statuses {
			forms = append(forms, storedForms(st)...)
		}
		conds = append(conds, "status IN ("+placeholders(len(forms))+")")
		for _, v := range forms {
			args = append(args, v)
		}
	}
	if f.DueFrom != nil {
		conds = append(conds, "due_date >= ?")
		args = append(args, formatTime(*f.DueFrom))
	}
	if f.DueTo != nil {
		conds = append(conds, "due_date < ?")
		args = append(args, formatTime(*f.DueTo))
	}
	if f.PaidFrom != nil {
		conds = append(conds, "paid_date >= ?")
		args = append(args, formatTime(*f.PaidFrom))
	}
	if f.PaidTo != nil {
		conds = append(conds, "paid_date < ?")
		args = append(args, formatTime(*f.PaidTo))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// storedForms lists the column values that read back as st.
func storedForms(st ledger.Status) []string {
	return append([]string{string(st)}, ledger.LegacySpellings(st)...)
}

// =============================================================================
// Scanning
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(row scanner) (ledger.Payment, error) {
	var (
		p                                     ledger.Payment
		amount, lateFee, status, attachments  string
		due, start, end, createdAt, updatedAt string
		paid                                  sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.TenantID, &p.PropertyID, &amount, &lateFee, &due, &paid,
		&start, &end, &status, &p.Method, &p.Description, &p.TransactionID, &p.Notes,
		&attachments, &p.CreatedBy, &p.UpdatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return p, err
	}

	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return p, fmt.Errorf("payment %s: invalid amount %q: %w", p.ID, amount, err)
	}
	if p.LateFee, err = decimal.NewFromString(lateFee); err != nil {
		return p, fmt.Errorf("payment %s: invalid late fee %q: %w", p.ID, lateFee, err)
	}
	if p.Status, err = ledger.ParseStatus(status); err != nil {
		return p, fmt.Errorf("payment %s: %w", p.ID, err)
	}

	for _, t := range []struct {
		raw string
		dst *time.Time
	}{
		{due, &p.DueDate},
		{start, &p.Period.Start},
		{end, &p.Period.End},
		{createdAt, &p.CreatedAt},
		{updatedAt, &p.UpdatedAt},
	} {
		if *t.dst, err = parseTime(t.raw); err != nil {
			return p, fmt.Errorf("payment %s: %w", p.ID, err)
		}
	}
	if paid.Valid {
		pd, err := parseTime(paid.String)
		if err != nil {
			return p, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		p.PaidDate = &pd
	}

	if err := json.Unmarshal([]byte(attachments), &p.Attachments); err != nil {
		return p, fmt.Errorf("payment %s: invalid attachments: %w", p.ID, err)
	}
	return p, nil
}

func encodeAttachments(ids []ledger.DocumentID) (string, error) {
	if ids == nil {
		ids = []ledger.DocumentID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode attachments: %w", err)
	}
	return string(data), nil
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
