package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "weather-notifier/internal/common/errors"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/models"
	"weather-notifier/internal/services/dispatch"
	"weather-notifier/internal/services/subscription"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type mockSubscriptions struct {
	SubscribeFunc     func(ctx context.Context, req subscription.Request) (*subscription.Result, error)
	UsersFunc         func(ctx context.Context) ([]models.Subscriber, error)
	EmailFunc         func(ctx context.Context, userID string) (*subscription.EmailLookup, error)
	LatestWeatherFunc func(ctx context.Context, userID, location string) (*models.WeatherSnapshot, error)
}

func (m *mockSubscriptions) Subscribe(ctx context.Context, req subscription.Request) (*subscription.Result, error) {
	return m.SubscribeFunc(ctx, req)
}

func (m *mockSubscriptions) Users(ctx context.Context) ([]models.Subscriber, error) {
	return m.UsersFunc(ctx)
}

func (m *mockSubscriptions) Email(ctx context.Context, userID string) (*subscription.EmailLookup, error) {
	return m.EmailFunc(ctx, userID)
}

func (m *mockSubscriptions) LatestWeather(ctx context.Context, userID, location string) (*models.WeatherSnapshot, error) {
	return m.LatestWeatherFunc(ctx, userID, location)
}

type mockDispatcher struct {
	RunFunc func(ctx context.Context) (*dispatch.Report, error)
}

func (m *mockDispatcher) Run(ctx context.Context) (*dispatch.Report, error) {
	return m.RunFunc(ctx)
}

type mockNotifications struct {
	ListFunc func(ctx context.Context) ([]models.NotificationRecord, error)
}

func (m *mockNotifications) List(ctx context.Context) ([]models.NotificationRecord, error) {
	return m.ListFunc(ctx)
}

// ==========================
// Helpers
// ==========================

func newTestApp(t *testing.T, subs *mockSubscriptions, d *mockDispatcher, n *mockNotifications) *fiber.App {
	t.Helper()
	if subs == nil {
		subs = &mockSubscriptions{}
	}
	if d == nil {
		d = &mockDispatcher{}
	}
	if n == nil {
		n = &mockNotifications{}
	}
	h := NewHandler(subs, d, n, logger.NewTestLogger(t))
	return NewApp(ServerConfig{AppName: "weather-notifier-test"}, h)
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]interface{}, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var obj map[string]interface{}
	_ = json.Unmarshal(raw, &obj)
	return resp.StatusCode, obj, raw
}

// ==========================
// Tests
// ==========================

func TestSubscribe_Created(t *testing.T) {
	var got subscription.Request
	subs := &mockSubscriptions{
		SubscribeFunc: func(ctx context.Context, req subscription.Request) (*subscription.Result, error) {
			got = req
			return &subscription.Result{
				Message: subscription.SuccessMessage,
				Weather: &models.WeatherSnapshot{Location: "Paris", Temperature: 18, WeatherDescription: "Sunny", Humidity: 40},
			}, nil
		},
	}
	app := newTestApp(t, subs, nil, nil)

	status, body, _ := do(t, app, http.MethodPost, "/subscribe",
		`{"user_id":"u1","location":"Paris","notification_method":["email"],"email_id":"a@x.io","phone_number":null}`)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "User subscribed successfully!", body["message"])
	weather := body["weather"].(map[string]interface{})
	assert.Equal(t, "Sunny", weather["weather_description"])

	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, []string{"email"}, got.NotificationMethod)
	assert.Empty(t, got.PhoneNumber)
}

func TestSubscribe_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		err       error
		status    int
		wantError string
	}{
		{"not json", `{user_id`, nil, http.StatusBadRequest, "request body must be a JSON object"},
		{"array body", `[]`, nil, http.StatusBadRequest, ""},
		{"methods as string", `{"user_id":"u1","location":"Paris","notification_method":"email","email_id":"a@x.io"}`, nil, http.StatusBadRequest, ""},
		{"numeric user id", `{"user_id":7,"location":"Paris","notification_method":["email"],"email_id":"a@x.io"}`, nil, http.StatusBadRequest, ""},
		{"validation", `{}`, apperrors.NewValidationError("user_id", "user_id is required"), http.StatusBadRequest, "user_id is required"},
		{"conflict", `{}`, apperrors.NewConflictError("u1"), http.StatusBadRequest, "User ID already exists. Please choose a different one."},
		{"store", `{}`, apperrors.NewStoreError("insert", errors.New("pq: connection refused")), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			subs := &mockSubscriptions{
				SubscribeFunc: func(ctx context.Context, req subscription.Request) (*subscription.Result, error) {
					called = true
					return nil, tt.err
				},
			}
			app := newTestApp(t, subs, nil, nil)

			status, body, _ := do(t, app, http.MethodPost, "/subscribe", tt.body)
			assert.Equal(t, tt.status, status)
			require.Contains(t, body, "error")
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
			assert.Equal(t, tt.err != nil, called)
		})
	}
}

func TestUsers(t *testing.T) {
	users := []models.Subscriber{{UserID: "u1", Location: "Paris", NotificationMethod: []models.Method{models.MethodEmail}}}
	subs := &mockSubscriptions{
		UsersFunc: func(ctx context.Context) ([]models.Subscriber, error) { return users, nil },
	}
	app := newTestApp(t, subs, nil, nil)

	status, _, raw := do(t, app, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusOK, status)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0]["user_id"])

	status, body, _ := do(t, app, http.MethodGet, "/get_subscribed_users", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["users"], 1)
}

func TestGetUserEmail(t *testing.T) {
	subs := &mockSubscriptions{
		EmailFunc: func(ctx context.Context, userID string) (*subscription.EmailLookup, error) {
			switch userID {
			case "":
				return nil, apperrors.NewValidationError("user_id", "User ID is required")
			case "u1":
				return &subscription.EmailLookup{UserID: "u1", EmailID: "a@x.io"}, nil
			}
			return nil, apperrors.NewResourceNotFoundError("subscriber", "User not found or no email provided")
		},
	}
	app := newTestApp(t, subs, nil, nil)

	status, body, _ := do(t, app, http.MethodGet, "/get_user_email?user_id=u1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a@x.io", body["email_id"])

	status, body, _ = do(t, app, http.MethodGet, "/get_user_email", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User ID is required", body["error"])

	status, body, _ = do(t, app, http.MethodGet, "/get_user_email?user_id=ghost", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found or no email provided", body["error"])
}

func TestWeather(t *testing.T) {
	subs := &mockSubscriptions{
		LatestWeatherFunc: func(ctx context.Context, userID, location string) (*models.WeatherSnapshot, error) {
			if userID == "u1" && location == "Paris" {
				return &models.WeatherSnapshot{Location: "Paris", Temperature: 9}, nil
			}
			return nil, apperrors.NewResourceNotFoundError("weather", "none")
		},
	}
	app := newTestApp(t, subs, nil, nil)

	status, body, _ := do(t, app, http.MethodGet, "/weather?user_id=u1&location=Paris", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 9.0, body["temperature"])

	status, _, _ = do(t, app, http.MethodGet, "/weather?user_id=u1&location=Rome", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSendNotifications(t *testing.T) {
	t.Run("report", func(t *testing.T) {
		d := &mockDispatcher{RunFunc: func(ctx context.Context) (*dispatch.Report, error) {
			return &dispatch.Report{NotificationsSent: []dispatch.Delivery{
				{UserID: "u1", Method: models.MethodEmail, Status: models.StatusSent},
				{UserID: "u1", Method: models.MethodSMS, Status: models.StatusFailed},
			}}, nil
		}}
		app := newTestApp(t, nil, d, nil)

		status, _, raw := do(t, app, http.MethodPost, "/send_notifications", "")
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"notifications_sent":[
			{"user_id":"u1","method":"email","status":"Sent"},
			{"user_id":"u1","method":"SMS","status":"Failed"}
		]}`, string(raw))
	})

	t.Run("empty", func(t *testing.T) {
		d := &mockDispatcher{RunFunc: func(ctx context.Context) (*dispatch.Report, error) {
			return &dispatch.Report{NotificationsSent: []dispatch.Delivery{}}, nil
		}}
		app := newTestApp(t, nil, d, nil)

		status, _, raw := do(t, app, http.MethodPost, "/send_notifications", "")
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"notifications_sent":[]}`, string(raw))
	})

	t.Run("scan failure", func(t *testing.T) {
		d := &mockDispatcher{RunFunc: func(ctx context.Context) (*dispatch.Report, error) {
			return nil, apperrors.NewStoreError("scan_all", errors.New("down"))
		}}
		app := newTestApp(t, nil, d, nil)

		status, _, _ := do(t, app, http.MethodPost, "/send_notifications", "")
		assert.Equal(t, http.StatusInternalServerError, status)
	})
}

func TestNotificationLogs(t *testing.T) {
	n := &mockNotifications{ListFunc: func(ctx context.Context) ([]models.NotificationRecord, error) {
		return []models.NotificationRecord{
			{ID: "r2", UserID: "u1", Method: models.MethodSMS, Status: models.StatusFailed},
			{ID: "r1", UserID: "u1", Method: models.MethodEmail, Status: models.StatusSent},
		}, nil
	}}
	app := newTestApp(t, nil, nil, n)

	status, _, raw := do(t, app, http.MethodGet, "/notification_logs", "")
	assert.Equal(t, http.StatusOK, status)

	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0]["id"])
	assert.Equal(t, "SMS", list[0]["notification_method"])
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, nil, nil, nil)
	status, body, _ := do(t, app, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "error")
}
