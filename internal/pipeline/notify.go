package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"layout-snapshot/internal/retry"

	"golang.org/x/xerrors"
)

// HTTPNotifier PATCHes every report as JSON to URL.
type HTTPNotifier struct {
	URL    string
	Client *http.Client
}

func NewHTTPNotifier(url string) *HTTPNotifier {
	return &HTTPNotifier{
		URL: url,
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &retry.Transport{
				Base:          http.DefaultTransport,
				RetryStrategy: retry.NewExponentialBackOff(100*time.Millisecond, 5*time.Second, 4, nil),
				RetryOn:       retry.NewDefaultOn(),
				MaxRetryAfter: 10 * time.Second,
			},
		},
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return xerrors.Errorf("failed to marshal report: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, n.URL, bytes.NewReader(body))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := n.Client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode >= 300 {
		return xerrors.Errorf("callback %s answered %s", n.URL, response.Status)
	}
	return nil
}
