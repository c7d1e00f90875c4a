// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-notifier/internal/common/config"
	"weather-notifier/internal/common/database"
)

var (
	baseURL    string
	httpClient = &http.Client{Timeout: 2 * time.Minute}
)

func TestMain(m *testing.M) {
	baseURL = strings.TrimRight(os.Getenv("E2E_BASE_URL"), "/")
	os.Exit(m.Run())
}

func requireRunningService(t *testing.T) {
	t.Helper()
	if baseURL == "" {
		t.Skip("E2E_BASE_URL not set; skipping end-to-end tests")
	}
}

func TestFullE2E(t *testing.T) {
	requireRunningService(t)

	t.Log("🚀 Starting FULL E2E Test against", baseURL)

	// 1. Check the backing services the API depends on
	assertServicesConnectivity(t)

	userID := "e2e-" + uuid.NewString()

	// 2. Invalid requests are rejected before anything is stored
	testSubscribeValidation(t, userID)

	// 3. Register, reject the duplicate, read it back
	testSubscribe(t, userID)
	testLookups(t, userID)

	// 4. Run one dispatch batch and check the audit trail
	testSendNotifications(t)

	t.Log("✅ ALL TESTS PASSED: full E2E workflow successful!")
}

func assertServicesConnectivity(t *testing.T) {
	t.Log("🔍 Checking service connectivity...")

	cfg, err := config.Load()
	if err != nil {
		t.Logf("⚠️ config not loadable, skipping direct store checks: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "❌ PostgreSQL connection failed")
	assert.NoError(t, pg.Ping(ctx), "❌ PostgreSQL ping failed")
	pg.Close()
	t.Log("✅ PostgreSQL connected")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "❌ Redis client creation failed")
	assert.NoError(t, rdb.Ping(ctx), "❌ Redis ping failed")
	rdb.Close()
	t.Log("✅ Redis connected")

	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		require.NoError(t, err, "❌ Elasticsearch client creation failed")
		assert.NoError(t, es.Ping(ctx), "❌ Elasticsearch ping failed")
		t.Log("✅ Elasticsearch connected")
	}
}

func testSubscribeValidation(t *testing.T, userID string) {
	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{
			name: "no contact",
			body: map[string]interface{}{"user_id": userID, "location": "Paris", "notification_method": []string{"email"}},
			want: "Either email_id or phone number is required.",
		},
		{
			name: "bad units",
			body: map[string]interface{}{"user_id": userID, "location": "Paris", "notification_method": []string{"email"}, "email_id": "e2e@example.com", "preferred_units": "Kelvin"},
			want: "preferred_units",
		},
		{
			name: "wrong type",
			body: map[string]interface{}{"user_id": 42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := doJSON(t, http.MethodPost, "/subscribe", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			if tt.want != "" {
				assert.Contains(t, out["error"], tt.want)
			}
		})
	}
}

func testSubscribe(t *testing.T, userID string) {
	body := map[string]interface{}{
		"user_id":             userID,
		"location":            "Paris",
		"notification_method": []string{"email"},
		"email_id":            "e2e@example.com",
		"preferred_units":     "Celsius",
	}

	status, out := doJSON(t, http.MethodPost, "/subscribe", body)
	require.Equal(t, http.StatusCreated, status, "subscribe failed: %v", out)
	assert.Equal(t, "User subscribed successfully!", out["message"])
	t.Log("✅ subscriber created")

	status, out = doJSON(t, http.MethodPost, "/subscribe", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User ID already exists. Please choose a different one.", out["error"])
	t.Log("✅ duplicate rejected")
}

func testLookups(t *testing.T, userID string) {
	status, out := doJSON(t, http.MethodGet, "/get_user_email?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "e2e@example.com", out["email_id"])

	status, out = doJSON(t, http.MethodGet, "/get_user_email?user_id=missing-"+userID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found or no email provided", out["error"])

	status, out = doJSON(t, http.MethodGet, "/get_subscribed_users", nil)
	require.Equal(t, http.StatusOK, status)
	users, ok := out["users"].([]interface{})
	require.True(t, ok, "users should be a list")

	found := false
	for _, u := range users {
		if m, ok := u.(map[string]interface{}); ok && m["user_id"] == userID {
			found = true
		}
	}
	assert.True(t, found, "new subscriber missing from /get_subscribed_users")
	t.Log("✅ lookups consistent")
}

func testSendNotifications(t *testing.T) {
	status, out := doJSON(t, http.MethodPost, "/send_notifications", nil)
	require.Equal(t, http.StatusOK, status, "dispatch failed: %v", out)

	sent, ok := out["notifications_sent"].([]interface{})
	require.True(t, ok, "notifications_sent should be a list")

	for _, d := range sent {
		m, ok := d.(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, []interface{}{"Sent", "Failed"}, m["status"])
	}

	status, _ = doJSON(t, http.MethodGet, "/notification_logs", nil)
	require.Equal(t, http.StatusOK, status)
	t.Logf("✅ dispatch run reported %d deliveries", len(sent))
}

func doJSON(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// list responses leave out empty
	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}
