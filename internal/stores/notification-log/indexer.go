package notificationlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"weather-notifier/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

var ErrIndexFailed = errors.New("INDEX_FAILED")

// Indexer mirrors notification records into an Elasticsearch index for search.
type Indexer struct {
	client *elasticsearch.Client
	index  string
}

func NewIndexer(client *elasticsearch.Client, index string) *Indexer {
	return &Indexer{client: client, index: index}
}

type indexedRecord struct {
	UserID   string `json:"user_id"`
	Location string `json:"location"`
	Method   string `json:"notification_method"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	LoggedAt string `json:"timestamp"`
}

func (i *Indexer) Index(ctx context.Context, rec models.NotificationRecord) error {
	body, err := json.Marshal(indexedRecord{
		UserID:   rec.UserID,
		Location: rec.Location,
		Method:   string(rec.Method),
		Status:   string(rec.Status),
		Message:  rec.Message,
		LoggedAt: rec.LoggedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrIndexFailed, err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(rec.ID),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%w: %s: %s", ErrIndexFailed, res.Status(), msg)
	}
	return nil
}
