package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
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
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	notes         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	synced_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS sends (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	campaign   TEXT NOT NULL,
	step       INTEGER NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	sent_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	message_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dead_letters (
	id          TEXT PRIMARY KEY,
	lead_id     TEXT NOT NULL,
	campaign    TEXT NOT NULL,
	step        INTEGER NOT NULL,
	error       TEXT NOT NULL,
	error_type  TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_email ON leads(email) WHERE email != '';
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_sends_lead_campaign ON sends(lead_id, campaign);
CREATE INDEX IF NOT EXISTS idx_events_lead_id ON events(lead_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	now := time.Now().UTC()
	if lead.ID == "" {
		lead.ID = uuid.New().String()
		lead.CreatedAt = now
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	lead.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO leads (id, airtable_id, salesforce_id, name, company, email, website,
			linkedin_url, phone, city, state, source, status, confidence, notes,
			created_at, updated_at, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
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
	return eris.Wrapf(err, "postgres: upsert lead %s", lead.ID)
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanPgLead(row)
}

func (s *PostgresStore) GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE email = $1 LIMIT 1`, email)
	return scanPgLead(row)
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.Source != "" {
		query += ` AND source = ` + arg(filter.Source)
	}
	if filter.Unsynced {
		query += ` AND (airtable_id IS NULL OR airtable_id = '')`
	}
	query += ` ORDER BY created_at`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) DeleteLead(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete lead %s", id)
	}
	return checkTag(tag, "lead", id)
}

func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead status %s", id)
	}
	return checkTag(tag, "lead", id)
}

func (s *PostgresStore) LinkAirtable(ctx context.Context, id, airtableID string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET airtable_id = $1, synced_at = $2, updated_at = $3 WHERE id = $4`,
		airtableID, now, now, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: link airtable %s", id)
	}
	return checkTag(tag, "lead", id)
}

func (s *PostgresStore) LinkSalesforce(ctx context.Context, id, salesforceID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET salesforce_id = $1, updated_at = $2 WHERE id = $3`,
		salesforceID, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: link salesforce %s", id)
	}
	return checkTag(tag, "lead", id)
}

func (s *PostgresStore) CreateSend(ctx context.Context, send *model.Send) error {
	if send.ID == "" {
		send.ID = uuid.New().String()
	}
	if send.Status == "" {
		send.Status = model.SendStatusPending
	}
	if send.CreatedAt.IsZero() {
		send.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sends (id, lead_id, campaign, step, subject, status, error, created_at, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		send.ID, send.LeadID, send.Campaign, send.Step, send.Subject,
		string(send.Status), send.Error, send.CreatedAt, send.SentAt)
	return eris.Wrapf(err, "postgres: create send for lead %s", send.LeadID)
}

func (s *PostgresStore) CompleteSend(ctx context.Context, sendID string, status model.SendStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sends SET status = $1, error = $2, sent_at = $3 WHERE id = $4`,
		string(status), errMsg, time.Now().UTC(), sendID)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete send %s", sendID)
	}
	return checkTag(tag, "send", sendID)
}

func (s *PostgresStore) ListSends(ctx context.Context, leadID, campaign string) ([]model.Send, error) {
	query := `SELECT id, lead_id, campaign, step, subject, status, error, created_at, sent_at
		FROM sends WHERE lead_id = $1`
	args := []any{leadID}
	if campaign != "" {
		query += ` AND campaign = $2`
		args = append(args, campaign)
	}
	query += ` ORDER BY step, created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sends")
	}
	defer rows.Close()

	var sends []model.Send
	for rows.Next() {
		sd, err := scanPgSend(rows)
		if err != nil {
			return nil, err
		}
		sends = append(sends, *sd)
	}
	return sends, eris.Wrap(rows.Err(), "postgres: list sends iterate")
}

func (s *PostgresStore) LastStepSend(ctx context.Context, leadID, campaign string) (*model.Send, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, lead_id, campaign, step, subject, status, error, created_at, sent_at
		 FROM sends WHERE lead_id = $1 AND campaign = $2
		 ORDER BY step DESC, created_at DESC LIMIT 1`,
		leadID, campaign)
	send, err := scanPgSend(row)
	if eris.Is(err, ErrNotFound) {
		return nil, nil
	}
	return send, err
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (id, lead_id, type, message_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.LeadID, string(event.Type), event.MessageID, event.CreatedAt)
	return eris.Wrapf(err, "postgres: record event for lead %s", event.LeadID)
}

func (s *PostgresStore) ListEvents(ctx context.Context, leadID string) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, type, message_id, created_at FROM events
		 WHERE lead_id = $1 ORDER BY created_at`, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var typ string
		if err := rows.Scan(&e.ID, &e.LeadID, &typ, &e.MessageID, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		e.Type = model.EventType(typ)
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

func (s *PostgresStore) AddDeadLetter(ctx context.Context, dl *DeadLetter) error {
	if dl.ID == "" {
		dl.ID = uuid.New().String()
	}
	if dl.CreatedAt.IsZero() {
		dl.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dead_letters (id, lead_id, campaign, step, error, error_type, retry_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		dl.ID, dl.LeadID, dl.Campaign, dl.Step, dl.Error, dl.ErrorType, dl.RetryCount, dl.CreatedAt)
	return eris.Wrapf(err, "postgres: add dead letter for lead %s", dl.LeadID)
}

func (s *PostgresStore) ListDeadLetters(ctx context.Context, filter DeadLetterFilter) ([]DeadLetter, error) {
	query := `SELECT id, lead_id, campaign, step, error, error_type, retry_count, created_at
		FROM dead_letters WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.ErrorType != "" {
		query += ` AND error_type = ` + arg(filter.ErrorType)
	}
	if filter.Campaign != "" {
		query += ` AND campaign = ` + arg(filter.Campaign)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dead letters")
	}
	defer rows.Close()

	var dls []DeadLetter
	for rows.Next() {
		var dl DeadLetter
		if err := rows.Scan(&dl.ID, &dl.LeadID, &dl.Campaign, &dl.Step, &dl.Error,
			&dl.ErrorType, &dl.RetryCount, &dl.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dead letter")
		}
		dls = append(dls, dl)
	}
	return dls, eris.Wrap(rows.Err(), "postgres: list dead letters iterate")
}

// helpers

func checkTag(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var airtableID, salesforceID *string
	var syncedAt *time.Time
	var status string

	err := row.Scan(&l.ID, &airtableID, &salesforceID, &l.Name, &l.Company, &l.Email,
		&l.Website, &l.LinkedInURL, &l.Phone, &l.City, &l.State, &l.Source,
		&status, &l.Confidence, &l.Notes, &l.CreatedAt, &l.UpdatedAt, &syncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan lead")
	}

	if airtableID != nil {
		l.AirtableID = *airtableID
	}
	if salesforceID != nil {
		l.SalesforceID = *salesforceID
	}
	l.Status = model.LeadStatus(status)
	l.SyncedAt = syncedAt
	return &l, nil
}

func scanPgSend(row pgx.Row) (*model.Send, error) {
	var sd model.Send
	var status string
	var sentAt *time.Time

	err := row.Scan(&sd.ID, &sd.LeadID, &sd.Campaign, &sd.Step, &sd.Subject,
		&status, &sd.Error, &sd.CreatedAt, &sentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan send")
	}

	sd.Status = model.SendStatus(status)
	sd.SentAt = sentAt
	return &sd, nil
}
