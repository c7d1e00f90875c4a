package notificationlog

import (
	"context"
	"database/sql"
	"time"

	apperrors "weather-notifier/internal/common/errors"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const Component = "notification-log"

const (
	appendQuery = `INSERT INTO notification_records (id, user_id, location, notification_method, status, message, logged_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	listQuery = `SELECT id, user_id, location, notification_method, status, message, logged_at
FROM notification_records
ORDER BY logged_at DESC`
)

// Log is the append-only record of delivery attempts. When an Indexer is attached, every
// appended record is mirrored to it on a best-effort basis.
type Log struct {
	db      *sql.DB
	indexer *Indexer
	clock   clockwork.Clock
	timeout time.Duration
	logger  logger.Logger
}

func NewLog(db *sql.DB, indexer *Indexer, clock clockwork.Clock, timeout time.Duration, log logger.Logger) *Log {
	return &Log{
		db:      db,
		indexer: indexer,
		clock:   clock,
		timeout: timeout,
		logger:  logger.ForComponent(log, Component),
	}
}

// Append persists rec and returns it with ID and LoggedAt filled in.
func (l *Log) Append(ctx context.Context, rec models.NotificationRecord) (models.NotificationRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.LoggedAt.IsZero() {
		rec.LoggedAt = l.clock.Now().UTC()
	}

	dbCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	_, err := l.db.ExecContext(dbCtx, appendQuery,
		rec.ID,
		rec.UserID,
		rec.Location,
		string(rec.Method),
		string(rec.Status),
		rec.Message,
		rec.LoggedAt,
	)
	if err != nil {
		return rec, apperrors.NewStoreError("notification_append", err)
	}

	if l.indexer != nil {
		if err := l.indexer.Index(ctx, rec); err != nil {
			l.logger.Warn("notification index failed", map[string]interface{}{
				"id":    rec.ID,
				"error": err.Error(),
			})
		}
	}

	return rec, nil
}

// List returns every record, most recent first.
func (l *Log) List(ctx context.Context) ([]models.NotificationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, apperrors.NewStoreError("notification_list", err)
	}
	defer rows.Close()

	records := []models.NotificationRecord{}
	for rows.Next() {
		var (
			rec    models.NotificationRecord
			method string
			status string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Location, &method, &status, &rec.Message, &rec.LoggedAt); err != nil {
			return nil, apperrors.NewStoreError("notification_list", err)
		}
		rec.Method = models.Method(method)
		rec.Status = models.Status(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("notification_list", err)
	}

	return records, nil
}
