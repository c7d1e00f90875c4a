package subscriberstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "weather-notifier/internal/common/errors"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const (
	Component      = "subscriber-store"
	emailKeyPrefix = "subscriber:email:"
)

// ErrDuplicateSubscriber is returned by Insert when user_id is already taken.
var ErrDuplicateSubscriber = errors.New("DUPLICATE_SUBSCRIBER")

const (
	existsQuery = `SELECT EXISTS(SELECT 1 FROM subscribers WHERE user_id = $1)`

	insertQuery = `INSERT INTO subscribers (user_id, email_id, phone_number, location, notification_method, preferred_units, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO NOTHING`

	scanAllQuery = `SELECT user_id, email_id, phone_number, location, notification_method, preferred_units, created_at FROM subscribers`

	emailQuery = `SELECT email_id FROM subscribers WHERE user_id = $1`
)

type Store struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	clock  clockwork.Clock
	logger logger.Logger
}

// NewStore builds a Postgres-backed subscriber store. redis may be nil.
func NewStore(config *Config, db *sql.DB, rdb *redis.Client, clock clockwork.Clock, log logger.Logger) *Store {
	return &Store{
		config: config,
		db:     db,
		redis:  rdb,
		clock:  clock,
		logger: logger.ForComponent(log, Component),
	}
}

func (s *Store) Exists(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var exists bool
	if err := s.db.QueryRowContext(ctx, existsQuery, userID).Scan(&exists); err != nil {
		return false, apperrors.NewStoreError("exists", err)
	}
	return exists, nil
}

// Insert persists sub. The conditional insert makes a concurrent duplicate lose with
// ErrDuplicateSubscriber instead of overwriting the first row.
func (s *Store) Insert(ctx context.Context, sub models.Subscriber) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now().UTC()
	}
	units := sub.PreferredUnits
	if units == "" {
		units = models.UnitsCelsius
	}

	res, err := s.db.ExecContext(ctx, insertQuery,
		sub.UserID,
		nullable(sub.EmailID),
		nullable(sub.PhoneNumber),
		sub.Location,
		pq.Array(sub.MethodStrings()),
		string(units),
		createdAt,
	)
	if err != nil {
		return apperrors.NewStoreError("insert", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStoreError("insert", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateSubscriber, sub.UserID)
	}

	s.logger.Info("subscriber stored", map[string]interface{}{"user_id": sub.UserID})
	return nil
}

func (s *Store) ScanAll(ctx context.Context) ([]models.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, scanAllQuery)
	if err != nil {
		return nil, apperrors.NewStoreError("scan_all", err)
	}
	defer rows.Close()

	subscribers := []models.Subscriber{}
	for rows.Next() {
		var (
			sub     models.Subscriber
			email   sql.NullString
			phone   sql.NullString
			methods []string
			units   string
		)
		if err := rows.Scan(&sub.UserID, &email, &phone, &sub.Location, pq.Array(&methods), &units, &sub.CreatedAt); err != nil {
			return nil, apperrors.NewStoreError("scan_all", err)
		}
		sub.EmailID = email.String
		sub.PhoneNumber = phone.String
		sub.PreferredUnits = models.Units(units)
		sub.NotificationMethod = make([]models.Method, len(methods))
		for i, m := range methods {
			sub.NotificationMethod[i] = models.Method(m)
		}
		subscribers = append(subscribers, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("scan_all", err)
	}

	return subscribers, nil
}

// FindEmail returns the subscriber's email. found is false when the subscriber is unknown
// or registered without an email.
func (s *Store) FindEmail(ctx context.Context, userID string) (string, bool, error) {
	key := emailKeyPrefix + userID
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, key).Result(); err == nil {
			return val, true, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var email sql.NullString
	err := s.db.QueryRowContext(ctx, emailQuery, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, apperrors.NewStoreError("find_email", err)
	}
	if !email.Valid || strings.TrimSpace(email.String) == "" {
		return "", false, nil
	}

	if s.redis != nil && s.config.EmailCacheTTL > 0 {
		if err := s.redis.Set(ctx, key, email.String, s.config.EmailCacheTTL).Err(); err != nil {
			s.logger.Debug("email cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return email.String, true, nil
}

func nullable(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}
