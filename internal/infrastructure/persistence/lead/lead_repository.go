// Package lead provides the SQL implementation of the lead archive.
package lead

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
)

// receivedAtLayout sorts lexically; both sqlite3 and libsql hand it back as text.
const receivedAtLayout = "2006-01-02T15:04:05.000000000Z"

const leadColumns = `id, lead_id, idempotency_key, event_type, email, name, phone, value,
	currency, source_type, consent_state, session_id, page_url, device, client_ip,
	payload, submitted_at, received_at`

// SQLLeadRepository is the SQL-based implementation of lead.Repository.
type SQLLeadRepository struct {
	db *database.DB
}

// NewSQLLeadRepository creates a new instance of the repository.
func NewSQLLeadRepository(db *database.DB) *SQLLeadRepository {
	return &SQLLeadRepository{db: db}
}

// Store inserts an archived lead.
func (r *SQLLeadRepository) Store(ctx context.Context, l *lead.Lead) error {
	const query = `INSERT INTO leads (` + leadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	payload, err := json.Marshal(l.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode lead payload: %w", err)
	}

	start := time.Now()
	r.db.Logger().Database().Debug("Executing lead insert", "id", l.ID, "leadId", l.LeadID)

	_, err = r.db.ExecContext(ctx, query,
		l.ID, l.LeadID, l.IdempotencyKey, l.EventType, l.Email, l.Name, l.Phone, l.Value,
		l.Currency, l.SourceType, l.ConsentState, l.SessionID, l.PageURL, l.Device, l.ClientIP,
		string(payload), l.SubmittedAt, l.ReceivedAt.UTC().Format(receivedAtLayout),
	)
	if err != nil {
		r.db.Logger().Database().Error("Lead insert failed", "error", err.Error(), "leadId", l.LeadID)
		return fmt.Errorf("failed to insert lead %s: %w", l.LeadID, err)
	}

	duration := time.Since(start)
	r.db.Logger().Database().Info("Lead insert completed", "id", l.ID, "leadId", l.LeadID, "duration", duration)
	r.db.CheckSlowQuery(query, duration)
	return nil
}

// FindByLeadID returns the most recent archive row for leadID.
func (r *SQLLeadRepository) FindByLeadID(ctx context.Context, leadID string) (*lead.Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads WHERE lead_id = ? ORDER BY received_at DESC LIMIT 1`

	start := time.Now()
	l, err := scanLead(r.db.QueryRowContext(ctx, query, leadID))
	if errors.Is(err, sql.ErrNoRows) {
		r.db.Logger().Database().Debug("Lead not found", "leadId", leadID)
		return nil, lead.ErrNotFound
	}
	if err != nil {
		r.db.Logger().Database().Error("Failed to load lead", "error", err.Error(), "leadId", leadID)
		return nil, fmt.Errorf("failed to load lead %s: %w", leadID, err)
	}

	r.db.CheckSlowQuery(query, time.Since(start))
	return l, nil
}

// FindRecent returns up to limit leads, newest first.
func (r *SQLLeadRepository) FindRecent(ctx context.Context, limit int) ([]*lead.Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads ORDER BY received_at DESC, id DESC LIMIT ?`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.db.Logger().Database().Error("Failed to query recent leads", "error", err.Error())
		return nil, fmt.Errorf("failed to query recent leads: %w", err)
	}
	defer rows.Close()

	var leads []*lead.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}

	duration := time.Since(start)
	r.db.Logger().Database().Debug("Recent leads loaded", "count", len(leads), "duration", duration)
	r.db.CheckSlowQuery(query, duration)
	return leads, nil
}

// Count returns the number of archived leads.
func (r *SQLLeadRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (*lead.Lead, error) {
	var (
		l                                  lead.Lead
		name, phone, currency, source      sql.NullString
		consent, session, page, device, ip sql.NullString
		payload, receivedAt                string
	)

	err := row.Scan(
		&l.ID, &l.LeadID, &l.IdempotencyKey, &l.EventType, &l.Email, &name, &phone, &l.Value,
		&currency, &source, &consent, &session, &page, &device, &ip,
		&payload, &l.SubmittedAt, &receivedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Name = name.String
	l.Phone = phone.String
	l.Currency = currency.String
	l.SourceType = source.String
	l.ConsentState = consent.String
	l.SessionID = session.String
	l.PageURL = page.String
	l.Device = device.String
	l.ClientIP = ip.String
	if t, err := time.Parse(receivedAtLayout, receivedAt); err == nil {
		l.ReceivedAt = t
	}

	if err := json.Unmarshal([]byte(payload), &l.Payload); err != nil {
		return nil, fmt.Errorf("corrupt payload for lead %s: %w", l.LeadID, err)
	}
	return &l, nil
}
