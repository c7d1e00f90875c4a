package weatherlog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "weather-notifier/internal/common/errors"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/models"

	"github.com/google/uuid"
)

const Component = "weather-log"

const (
	appendQuery = `INSERT INTO weather_snapshots (id, user_id, location, temperature, weather_description, humidity, observed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, location, observed_at) DO NOTHING`

	latestQuery = `SELECT location, temperature, weather_description, humidity, observed_at
FROM weather_snapshots
WHERE user_id = $1 AND location = $2
ORDER BY observed_at DESC
LIMIT 1`
)

// Log is the append-only history of weather snapshots per subscriber.
type Log struct {
	db      *sql.DB
	timeout time.Duration
	logger  logger.Logger
}

func NewLog(db *sql.DB, timeout time.Duration, log logger.Logger) *Log {
	return &Log{
		db:      db,
		timeout: timeout,
		logger:  logger.ForComponent(log, Component),
	}
}

// Append records snap for userID. Re-appending an observation already recorded for the
// same user and location, such as a cached snapshot, is a no-op.
func (l *Log) Append(ctx context.Context, userID string, snap models.WeatherSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	_, err := l.db.ExecContext(ctx, appendQuery,
		uuid.NewString(),
		userID,
		snap.Location,
		snap.Temperature,
		snap.WeatherDescription,
		snap.Humidity,
		snap.ObservedAt,
	)
	if err != nil {
		return apperrors.NewStoreError("weather_append", err)
	}
	return nil
}

// Latest returns the newest snapshot recorded for (userID, location).
func (l *Log) Latest(ctx context.Context, userID, location string) (models.WeatherSnapshot, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var snap models.WeatherSnapshot
	err := l.db.QueryRowContext(ctx, latestQuery, userID, location).Scan(
		&snap.Location,
		&snap.Temperature,
		&snap.WeatherDescription,
		&snap.Humidity,
		&snap.ObservedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.WeatherSnapshot{}, false, nil
		}
		return models.WeatherSnapshot{}, false, apperrors.NewStoreError("weather_latest", err)
	}
	return snap, true, nil
}
