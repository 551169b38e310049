package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// SaveReport stores a scam report. Missing id, category and creation time
// are filled in.
func (r *SQLRepository) SaveReport(ctx context.Context, rep *domain.Report) error {
	if strings.TrimSpace(rep.Text) == "" {
		return fmt.Errorf("%w: report text is required", ErrInvalidInput)
	}
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}
	if rep.Category == "" {
		rep.Category = domain.DefaultReportCategory
	}
	if rep.CreatedAt == 0 {
		rep.CreatedAt = r.nowMillis()
	}

	_, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO reports (id, text, category, created_at) VALUES (?, ?, ?, ?)`),
		rep.ID, rep.Text, rep.Category, rep.CreatedAt,
	)
	return err
}

// ListReports returns every report in submission order.
func (r *SQLRepository) ListReports(ctx context.Context) ([]*domain.Report, error) {
	return r.queryReports(ctx, `SELECT id, text, category, created_at FROM reports ORDER BY created_at, id`)
}

// ListReportsByCategory matches the category case-insensitively.
func (r *SQLRepository) ListReportsByCategory(ctx context.Context, category string) ([]*domain.Report, error) {
	return r.queryReports(ctx,
		`SELECT id, text, category, created_at FROM reports WHERE LOWER(category) = LOWER(?) ORDER BY created_at, id`,
		category,
	)
}

func (r *SQLRepository) queryReports(ctx context.Context, query string, args ...any) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []*domain.Report{}
	for rows.Next() {
		var rep domain.Report
		if err := rows.Scan(&rep.ID, &rep.Text, &rep.Category, &rep.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, &rep)
	}
	return reports, rows.Err()
}

// SaveFeedback stores a feedback message.
func (r *SQLRepository) SaveFeedback(ctx context.Context, f *domain.Feedback) error {
	if strings.TrimSpace(f.Message) == "" {
		return fmt.Errorf("%w: feedback message is required", ErrInvalidInput)
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.Timestamp == 0 {
		f.Timestamp = r.nowMillis()
	}

	_, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO feedback (id, message, timestamp) VALUES (?, ?, ?)`),
		f.ID, f.Message, f.Timestamp,
	)
	return err
}

// ListFeedback returns all feedback in submission order.
func (r *SQLRepository) ListFeedback(ctx context.Context) ([]*domain.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, message, timestamp FROM feedback ORDER BY timestamp, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Feedback{}
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.Message, &f.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// SaveScan appends to the scan history. It returns false without error
// when a scan with the same input and timestamp already exists.
func (r *SQLRepository) SaveScan(ctx context.Context, s *domain.Scan) (bool, error) {
	if s.Type == "" {
		return false, fmt.Errorf("%w: scan type is required", ErrInvalidInput)
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Timestamp == 0 {
		s.Timestamp = r.nowMillis()
	}

	res, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO scans (id, type, input, verdict, score, timestamp) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (input, timestamp) DO NOTHING`),
		s.ID, s.Type, s.Input, s.Verdict, s.Score, s.Timestamp,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListScans returns the scan history, oldest first.
func (r *SQLRepository) ListScans(ctx context.Context) ([]*domain.Scan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, input, verdict, score, timestamp FROM scans ORDER BY timestamp, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Scan{}
	for rows.Next() {
		var s domain.Scan
		if err := rows.Scan(&s.ID, &s.Type, &s.Input, &s.Verdict, &s.Score, &s.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// SaveSupportTicket stores a support request.
func (r *SQLRepository) SaveSupportTicket(ctx context.Context, t *domain.SupportTicket) error {
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: support text is required", ErrInvalidInput)
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Timestamp == 0 {
		t.Timestamp = r.nowMillis()
	}

	var filename sql.NullString
	if t.Filename != "" {
		filename = sql.NullString{String: t.Filename, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO support_tickets (id, text, filename, timestamp) VALUES (?, ?, ?, ?)`),
		t.ID, t.Text, filename, t.Timestamp,
	)
	return err
}

// ListSupportTickets returns all tickets in submission order.
func (r *SQLRepository) ListSupportTickets(ctx context.Context) ([]*domain.SupportTicket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, filename, timestamp FROM support_tickets ORDER BY timestamp, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.SupportTicket{}
	for rows.Next() {
		var t domain.SupportTicket
		var filename sql.NullString
		if err := rows.Scan(&t.ID, &t.Text, &filename, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Filename = filename.String
		out = append(out, &t)
	}
	return out, rows.Err()
}

// GetSettings returns every setting keyed by name.
func (r *SQLRepository) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// UpdateSetting changes an existing setting. Unknown keys return ErrNotFound.
func (r *SQLRepository) UpdateSetting(ctx context.Context, key, value string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`UPDATE settings SET value = ? WHERE name = ?`), value, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
