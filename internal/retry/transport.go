package retry

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/xerrors"
)

// Transport replays a request while RetryOn matches the outcome and
// RetryStrategy has attempts left. Requests with a body are only replayed
// when GetBody is set, which http.NewRequest does for in-memory bodies.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
	// MaxRetryAfter caps a Retry-After hint sent with 429 and 503 answers.
	MaxRetryAfter time.Duration
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	for retryCount := uint(0); ; retryCount++ {
		attempt := request
		if retryCount > 0 {
			var err error
			attempt, err = rewind(request)
			if err != nil {
				return nil, err
			}
		}

		sleep, exceeded := t.retryStrategy().Sleep(retryCount)
		response, err := t.base().RoundTrip(attempt)
		if err != nil {
			if exceeded || t.RetryOn == nil || !t.RetryOn.CheckError(err) {
				return nil, err
			}
		} else {
			if exceeded || t.RetryOn == nil || !t.RetryOn.CheckResponse(response) {
				return response, nil
			}
			if hint, ok := retryAfter(response); ok {
				sleep = hint
				if t.MaxRetryAfter > 0 {
					sleep = atMost(sleep, t.MaxRetryAfter)
				}
			}
			_, _ = io.Copy(io.Discard, response.Body)
			_ = response.Body.Close()
		}

		if request.Body != nil && request.Body != http.NoBody && request.GetBody == nil {
			if err != nil {
				return nil, err
			}
			return nil, xerrors.Errorf("cannot replay %s %s: request body is not rewindable", request.Method, request.URL)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-request.Context().Done():
			timer.Stop()
			return nil, request.Context().Err()
		case <-timer.C:
		}
	}
}

func rewind(request *http.Request) (*http.Request, error) {
	if request.GetBody == nil {
		return request, nil
	}
	body, err := request.GetBody()
	if err != nil {
		return nil, xerrors.Errorf("failed to rewind request body: %w", err)
	}
	clone := request.Clone(request.Context())
	clone.Body = body
	return clone, nil
}

func retryAfter(response *http.Response) (time.Duration, bool) {
	if response.StatusCode != http.StatusTooManyRequests && response.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	value := response.Header.Get("Retry-After")
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(time.Until(at), 0), true
	}
	return 0, false
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
