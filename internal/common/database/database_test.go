package database

import (
	"context"
	"errors"
	"testing"

	"weather-notifier/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	client := &PostgresClient{DB: db}

	mock.ExpectPing()
	assert.NoError(t, client.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping failed")

	mock.ExpectClose()
	assert.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewRedis_EmptyAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestMigrationNames(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)

	assert.Contains(t, names, "000001_create_subscribers.up.sql")
	assert.Contains(t, names, "000002_create_weather_snapshots.up.sql")
	assert.Contains(t, names, "000003_create_notification_records.up.sql")
	assert.Len(t, names, 6)
}

func TestWeatherSnapshotsAreUniquePerObservation(t *testing.T) {
	raw, err := migrationFiles.ReadFile("migrations/000002_create_weather_snapshots.up.sql")
	require.NoError(t, err)

	assert.Contains(t, string(raw), "CREATE UNIQUE INDEX")
	assert.Contains(t, string(raw), "(user_id, location, observed_at)")
}
