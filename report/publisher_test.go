package report

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
)

func TestPublishDeliversReport(t *testing.T) {
	transport := httpmock.NewMockTransport()

	var gotContentType string
	var gotBody []byte
	transport.RegisterResponder(http.MethodPost, "https://reports.example.test/ingest",
		func(req *http.Request) (*http.Response, error) {
			gotContentType = req.Header.Get("Content-Type")
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			gotBody = body
			return httpmock.NewStringResponse(http.StatusAccepted, ""), nil
		})

	client := &http.Client{Transport: transport}
	p := NewPublisher("https://reports.example.test/ingest", client)

	if err := p.Publish(context.Background(), sampleReport()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}

	var doc map[string]any
	if err := json.Unmarshal(gotBody, &doc); err != nil {
		t.Fatalf("delivered body: %v", err)
	}
	if doc["total_runs"] != 5.0 {
		t.Errorf("total_runs = %v, want 5", doc["total_runs"])
	}
}

func TestPublishRejectsServerError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, "https://reports.example.test/ingest",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	client := &http.Client{Transport: transport}
	p := NewPublisher("https://reports.example.test/ingest", client)

	if err := p.Publish(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}
