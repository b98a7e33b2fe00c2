// Package audit journals every admin intent that reached the backend into
// Postgres, so it is possible to tell who changed what and whether it worked.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"catalogadmin/catalog"
	"catalogadmin/editcache"
	"catalogadmin/models"

	"github.com/gofrs/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	defaultLimit = 50
	maxLimit     = 500
)

const schema = `CREATE TABLE IF NOT EXISTS admin_audit (
	id UUID PRIMARY KEY,
	resource TEXT NOT NULL,
	operation TEXT NOT NULL,
	entity_id TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Open connects to Postgres and checks the connection.
func Open(connString string) (*sql.DB, error) {
	if connString == "" {
		return nil, errors.New("empty connection string")
	}

	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

type Journal struct {
	db  *sql.DB
	log logrus.FieldLogger
}

func New(db *sql.DB, logger logrus.FieldLogger) *Journal {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Journal{db: db, log: logger.WithField("component", "audit")}
}

func (j *Journal) EnsureSchema(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, schema)
	return err
}

// Record stores e. Failures are logged; the journal never fails an intent.
func (j *Journal) Record(ctx context.Context, e editcache.Event) {
	outcome, message := OutcomeSuccess, ""
	if e.Err != nil {
		outcome, message = OutcomeFailure, e.Err.Error()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO admin_audit
		(id, resource, operation, entity_id, outcome, message, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)`,
		uuid.Must(uuid.NewV4()).String(), e.Resource, e.Operation, e.EntityID, outcome, message, catalog.RequestIDFrom(ctx))
	if err != nil {
		j.log.WithFields(logrus.Fields{"resource": e.Resource, "op": e.Operation, "id": e.EntityID}).
			Errorf("Failed to record audit entry: %v", err)
	}
}

// Recent returns the newest entries, optionally only for the given resources.
func (j *Journal) Recent(ctx context.Context, limit int, resources ...string) ([]models.AuditEntry, error) {
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	q := `SELECT id, resource, operation, entity_id, outcome, message, request_id, created_at
		FROM admin_audit`
	stms := []interface{}{limit}
	if len(resources) > 0 {
		q += ` WHERE resource = ANY($2)`
		stms = append(stms, pq.Array(resources))
	}
	q += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := j.db.QueryContext(ctx, q, stms...)
	if err != nil {
		j.log.Errorf("Failed to query audit entries: %v", err)
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var entry models.AuditEntry
		if err := rows.Scan(&entry.Id, &entry.Resource, &entry.Operation, &entry.EntityId,
			&entry.Outcome, &entry.Message, &entry.RequestId, &entry.CreatedAt); err != nil {
			j.log.Errorf("Failed to scan audit entry: %v", err)
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
