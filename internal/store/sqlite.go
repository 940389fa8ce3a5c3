package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection keeps writes serialized and makes ":memory:"
	// databases work: each pooled connection would otherwise see its own
	// empty in-memory database.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id            TEXT PRIMARY KEY,
	airtable_id   TEXT,
	salesforce_id TEXT,
	name          TEXT NOT NULL DEFAULT '',
	company       TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	linkedin_url  TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'new',
	confidence    REAL NOT NULL DEFAULT 0,
	notes         TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	synced_at     DATETIME
);

CREATE TABLE IF NOT EXISTS sends (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	campaign   TEXT NOT NULL,
	step       INTEGER NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	sent_at    DATETIME
);

CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	message_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dead_letters (
	id          TEXT PRIMARY KEY,
	lead_id     TEXT NOT NULL,
	campaign    TEXT NOT NULL,
	step        INTEGER NOT NULL,
	error       TEXT NOT NULL,
	error_type  TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_email ON leads(email) WHERE email != '';
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_airtable_id ON leads(airtable_id);
CREATE INDEX IF NOT EXISTS idx_sends_lead_campaign ON sends(lead_id, campaign);
CREATE INDEX IF NOT EXISTS idx_events_lead_id ON events(lead_id);
CREATE INDEX IF NOT EXISTS idx_dead_letters_error_type ON dead_letters(error_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Backup snapshots the live database into a standalone file via VACUUM INTO.
// VACUUM does not accept bound parameters, so the path is quoted inline.
func (s *SQLiteStore) Backup(ctx context.Context, path string) error {
	quoted := strings.ReplaceAll(path, "'", "''")
	_, err := s.db.ExecContext(ctx, "VACUUM INTO '"+quoted+"'")
	return eris.Wrapf(err, "sqlite: vacuum into %s", path)
}

// UpsertLead inserts the lead, or updates the existing row when the id (or a
// non-empty email) already exists. Assigns a UUID and timestamps on insert.
func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	now := time.Now().UTC()
	if lead.ID == "" {
		lead.ID = uuid.New().String()
		lead.CreatedAt = now
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	lead.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (id, airtable_id, salesforce_id, name, company, email, website,
			linkedin_url, phone, city, state, source, status, confidence, notes,
			created_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			airtable_id = excluded.airtable_id,
			salesforce_id = excluded.salesforce_id,
			name = excluded.name,
			company = excluded.company,
			email = excluded.email,
			website = excluded.website,
			linkedin_url = excluded.linkedin_url,
			phone = excluded.phone,
			city = excluded.city,
			state = excluded.state,
			source = excluded.source,
			status = excluded.status,
			confidence = excluded.confidence,
			notes = excluded.notes,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at`,
		lead.ID, nullable(lead.AirtableID), nullable(lead.SalesforceID),
		lead.Name, lead.Company, lead.Email, lead.Website, lead.LinkedInURL,
		lead.Phone, lead.City, lead.State, lead.Source, string(lead.Status),
		lead.Confidence, lead.Notes, lead.CreatedAt, lead.UpdatedAt, lead.SyncedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert lead %s", lead.ID)
}

const leadColumns = `id, airtable_id, salesforce_id, name, company, email, website,
	linkedin_url, phone, city, state, source, status, confidence, notes,
	created_at, updated_at, synced_at`

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	return scanLead(row)
}

func (s *SQLiteStore) GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE email = ? LIMIT 1`, email)
	return scanLead(row)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.Unsynced {
		query += ` AND (airtable_id IS NULL OR airtable_id = '')`
	}
	query += ` ORDER BY created_at`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete lead %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead status %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) LinkAirtable(ctx context.Context, id, airtableID string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET airtable_id = ?, synced_at = ?, updated_at = ? WHERE id = ?`,
		airtableID, now, now, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: link airtable %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) LinkSalesforce(ctx context.Context, id, salesforceID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET salesforce_id = ?, updated_at = ? WHERE id = ?`,
		salesforceID, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: link salesforce %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) CreateSend(ctx context.Context, send *model.Send) error {
	if send.ID == "" {
		send.ID = uuid.New().String()
	}
	if send.Status == "" {
		send.Status = model.SendStatusPending
	}
	if send.CreatedAt.IsZero() {
		send.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sends (id, lead_id, campaign, step, subject, status, error, created_at, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		send.ID, send.LeadID, send.Campaign, send.Step, send.Subject,
		string(send.Status), send.Error, send.CreatedAt, send.SentAt)
	return eris.Wrapf(err, "sqlite: create send for lead %s", send.LeadID)
}

func (s *SQLiteStore) CompleteSend(ctx context.Context, sendID string, status model.SendStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sends SET status = ?, error = ?, sent_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), sendID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete send %s", sendID)
	}
	return checkRowsAffected(res, "send", sendID)
}

func (s *SQLiteStore) ListSends(ctx context.Context, leadID, campaign string) ([]model.Send, error) {
	query := `SELECT id, lead_id, campaign, step, subject, status, error, created_at, sent_at
		FROM sends WHERE lead_id = ?`
	args := []any{leadID}
	if campaign != "" {
		query += ` AND campaign = ?`
		args = append(args, campaign)
	}
	query += ` ORDER BY step, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sends")
	}
	defer rows.Close()

	var sends []model.Send
	for rows.Next() {
		sd, err := scanSend(rows)
		if err != nil {
			return nil, err
		}
		sends = append(sends, *sd)
	}
	return sends, eris.Wrap(rows.Err(), "sqlite: list sends iterate")
}

// LastStepSend returns the lead's most recent send in the campaign, any
// status, or nil when the lead has not been contacted yet.
func (s *SQLiteStore) LastStepSend(ctx context.Context, leadID, campaign string) (*model.Send, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, lead_id, campaign, step, subject, status, error, created_at, sent_at
		 FROM sends WHERE lead_id = ? AND campaign = ?
		 ORDER BY step DESC, created_at DESC LIMIT 1`,
		leadID, campaign)
	send, err := scanSend(row)
	if eris.Is(err, ErrNotFound) {
		return nil, nil
	}
	return send, err
}

func (s *SQLiteStore) RecordEvent(ctx context.Context, event *model.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, lead_id, type, message_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.LeadID, string(event.Type), event.MessageID, event.CreatedAt)
	return eris.Wrapf(err, "sqlite: record event for lead %s", event.LeadID)
}

func (s *SQLiteStore) ListEvents(ctx context.Context, leadID string) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, type, message_id, created_at FROM events
		 WHERE lead_id = ? ORDER BY created_at`, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var typ string
		if err := rows.Scan(&e.ID, &e.LeadID, &typ, &e.MessageID, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		e.Type = model.EventType(typ)
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}

func (s *SQLiteStore) AddDeadLetter(ctx context.Context, dl *DeadLetter) error {
	if dl.ID == "" {
		dl.ID = uuid.New().String()
	}
	if dl.CreatedAt.IsZero() {
		dl.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (id, lead_id, campaign, step, error, error_type, retry_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		dl.ID, dl.LeadID, dl.Campaign, dl.Step, dl.Error, dl.ErrorType, dl.RetryCount, dl.CreatedAt)
	return eris.Wrapf(err, "sqlite: add dead letter for lead %s", dl.LeadID)
}

func (s *SQLiteStore) ListDeadLetters(ctx context.Context, filter DeadLetterFilter) ([]DeadLetter, error) {
	query := `SELECT id, lead_id, campaign, step, error, error_type, retry_count, created_at
		FROM dead_letters WHERE 1=1`
	var args []any
	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}
	if filter.Campaign != "" {
		query += ` AND campaign = ?`
		args = append(args, filter.Campaign)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dead letters")
	}
	defer rows.Close()

	var dls []DeadLetter
	for rows.Next() {
		var dl DeadLetter
		if err := rows.Scan(&dl.ID, &dl.LeadID, &dl.Campaign, &dl.Step, &dl.Error,
			&dl.ErrorType, &dl.RetryCount, &dl.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dead letter")
		}
		dls = append(dls, dl)
	}
	return dls, eris.Wrap(rows.Err(), "sqlite: list dead letters iterate")
}

// helpers

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("not found")

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var airtableID, salesforceID sql.NullString
	var syncedAt sql.NullTime
	var status string

	err := row.Scan(&l.ID, &airtableID, &salesforceID, &l.Name, &l.Company, &l.Email,
		&l.Website, &l.LinkedInURL, &l.Phone, &l.City, &l.State, &l.Source,
		&status, &l.Confidence, &l.Notes, &l.CreatedAt, &l.UpdatedAt, &syncedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	l.AirtableID = airtableID.String
	l.SalesforceID = salesforceID.String
	l.Status = model.LeadStatus(status)
	if syncedAt.Valid {
		t := syncedAt.Time
		l.SyncedAt = &t
	}
	return &l, nil
}

func scanSend(row scannable) (*model.Send, error) {
	var sd model.Send
	var status string
	var sentAt sql.NullTime

	err := row.Scan(&sd.ID, &sd.LeadID, &sd.Campaign, &sd.Step, &sd.Subject,
		&status, &sd.Error, &sd.CreatedAt, &sentAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan send")
	}

	sd.Status = model.SendStatus(status)
	if sentAt.Valid {
		t := sentAt.Time
		sd.SentAt = &t
	}
	return &sd, nil
}
