package actuator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/port"
)

// maximum body bytes drained before closing so the connection can be reused
const maxDrainBytes = 64 << 10

var (
	ErrEmptyURL   = errors.New("actuator url is empty")
	ErrInvalidURL = errors.New("actuator url is invalid")
)

type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// HTTPSwitch drives a smart plug by issuing a single GET to the configured
// on/off URL. Any 2xx response counts as success; the body is ignored.
type HTTPSwitch struct {
	client *http.Client
}

func NewHTTPSwitch(timeout time.Duration) *HTTPSwitch {
	return &HTTPSwitch{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func NewHTTPSwitchWithClient(client *http.Client) *HTTPSwitch {
	return &HTTPSwitch{
		client: client,
	}
}

func (s *HTTPSwitch) Switch(ctx context.Context, rawURL string) (int, error) {
	if err := ValidateURL(rawURL); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}
	return resp.StatusCode, nil
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return ErrEmptyURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

// Outcome maps the result of Switch to a dispatch outcome label.
func Outcome(err error) string {
	if err == nil {
		return domain.DISPATCH_OUTCOME_SUCCESS
	}
	if errors.Is(err, ErrEmptyURL) || errors.Is(err, ErrInvalidURL) {
		return domain.DISPATCH_OUTCOME_SKIPPED
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return domain.DISPATCH_OUTCOME_HTTP_ERROR
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.DISPATCH_OUTCOME_TIMEOUT
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.DISPATCH_OUTCOME_TIMEOUT
	}
	return domain.DISPATCH_OUTCOME_TRANSPORT_ERROR
}

// ensure interface compliance
var _ port.Actuator = (*HTTPSwitch)(nil)
