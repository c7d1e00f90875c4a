// Package subscriberclient reads the subscriber list from a remote weather-notifier
// instance, for deployments where dispatch runs apart from subscription intake.
package subscriberclient

import (
	"context"
	"strings"
	"time"

	apperrors "weather-notifier/internal/common/errors"
	commonhttp "weather-notifier/internal/common/http"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/models"
)

const (
	Component = "subscriber-client"
	usersPath = "/get_subscribed_users"
)

type usersResponse struct {
	Users []models.Subscriber `json:"users"`
}

type Client struct {
	baseURL string
	timeout time.Duration
	http    *commonhttp.Client
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, httpClient *commonhttp.Client, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    httpClient,
		logger:  logger.ForComponent(log, Component),
	}
}

// ScanAll fetches every subscriber. Any transport failure or non-200 response is a store
// error for the caller's run.
func (c *Client) ScanAll(ctx context.Context) ([]models.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp usersResponse
	if err := c.http.GetJSON(ctx, c.baseURL+usersPath, nil, &resp); err != nil {
		c.logger.Error("subscriber fetch failed", map[string]interface{}{
			"url":   c.baseURL + usersPath,
			"error": err,
		})
		return nil, apperrors.NewStoreError("remote_scan_all", err)
	}

	if resp.Users == nil {
		return []models.Subscriber{}, nil
	}
	return resp.Users, nil
}
