package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"webstress/models"
)

const publishTimeout = 30 * time.Second

// Publisher delivers the aggregate report to an HTTP collection
// endpoint. Delivery failures never fail the campaign; the caller logs
// and moves on, since the report is already on disk.
type Publisher struct {
	endpoint string
	client   *http.Client
}

// NewPublisher builds a publisher for the given endpoint. A nil client
// gets a default with a bounded timeout.
func NewPublisher(endpoint string, client *http.Client) *Publisher {
	if client == nil {
		client = &http.Client{Timeout: publishTimeout}
	}
	return &Publisher{endpoint: endpoint, client: client}
}

// Publish POSTs the report as JSON and treats any non-2xx status as a
// delivery failure.
func (p *Publisher) Publish(ctx context.Context, rep *models.AggregateReport) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("publish report: endpoint returned %s", resp.Status)
	}
	return nil
}
