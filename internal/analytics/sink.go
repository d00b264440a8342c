package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lovenda/seatplan/internal/domain"
)

// HTTPSink posts batches as JSON to the analytics collector. Any 2xx is
// success; everything else triggers the pipeline's requeue policy.
type HTTPSink struct {
	URL    string
	Client *http.Client
}

func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSink) Send(ctx context.Context, batch []domain.Event) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analytics collector returned %d", resp.StatusCode)
	}
	return nil
}
