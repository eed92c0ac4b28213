package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/agenthands/symbiosis/internal/core/model"
)

// WebhookStore talks to a user-supplied script endpoint (for example a Google
// Apps Script in front of a spreadsheet). Requests are sent as text/plain so
// the script host does not require a CORS preflight.
type WebhookStore struct {
	client *resty.Client
	url    string
}

func NewWebhookStore(url string, timeout time.Duration) *WebhookStore {
	return &WebhookStore{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

// WithClient replaces the underlying resty client.
func (w *WebhookStore) WithClient(c *resty.Client) *WebhookStore {
	w.client = c
	return w
}

type retrieveRequest struct {
	Action   string   `json:"action"`
	Keywords []string `json:"keywords"`
}

type retrieveResponse struct {
	Memories []string `json:"memories"`
}

type storeRequest struct {
	Action string `json:"action"`
	model.MemoryRecord
}

func (w *WebhookStore) Retrieve(ctx context.Context, keywords []string) ([]string, error) {
	body, err := json.Marshal(retrieveRequest{Action: "retrieve", Keywords: keywords})
	if err != nil {
		return nil, err
	}

	resp, err := w.post(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("memory retrieve failed: %w", err)
	}

	var result retrieveResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, nil
	}
	return result.Memories, nil
}

func (w *WebhookStore) Store(ctx context.Context, record model.MemoryRecord) error {
	body, err := json.Marshal(storeRequest{Action: "store", MemoryRecord: record})
	if err != nil {
		return err
	}
	if _, err := w.post(ctx, body); err != nil {
		return fmt.Errorf("memory store failed: %w", err)
	}
	return nil
}

func (w *WebhookStore) post(ctx context.Context, body []byte) (*resty.Response, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(string(body)).
		Post(w.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}
	return resp, nil
}
