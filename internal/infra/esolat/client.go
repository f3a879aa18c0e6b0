// internal/infra/esolat/client.go
package esolat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"prayer_time_extractor/internal/domain/calendar"
	"prayer_time_extractor/internal/domain/prayertime"
	"prayer_time_extractor/internal/infra/metrics"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://www.e-solat.gov.my/index.php"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 5

	takwimRoute = "esolatApi/TakwimSolat"
)

// Config controls how the client talks to the e-Solat endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration // per attempt
	// MaxRetries is the attempt budget for timeouts; a value below 1 means a single attempt.
	MaxRetries int
	RetryDelay time.Duration
	// RequestsPerSecond paces all requests through one shared limiter. 0 disables pacing.
	RequestsPerSecond float64
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// Client implements prayertime.Fetcher against the JAKIM e-Solat TakwimSolat API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	logger     *logrus.Entry
}

// NewHTTPClient returns a client sized for maxConns parallel requests to one host.
// Timeouts are applied per attempt through the request context, not here.
func NewHTTPClient(maxConns int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if maxConns > 0 {
		transport.MaxIdleConnsPerHost = maxConns
	}
	return &http.Client{Transport: transport}
}

func NewClient(cfg Config, httpClient *http.Client, m *metrics.Metrics, logger *logrus.Entry) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
		metrics:    m,
		logger:     logger.WithField("component", "esolat-client"),
	}
}

// Fetch looks up the prayer times of one zone on one date.
// Timeouts are retried up to the configured budget; any other failure is returned at once.
func (c *Client) Fetch(ctx context.Context, date time.Time, zoneCode string) (*prayertime.Response, error) {
	apiURL := c.requestURL(date, zoneCode)
	log := c.logger.WithFields(logrus.Fields{
		"zone": zoneCode,
		"date": date.Format(calendar.DateLayout),
	})

	var resp *prayertime.Response
	attempts := 0
	err := retry.Do(
		func() error {
			attempts++
			r, err := c.attempt(ctx, apiURL)
			switch {
			case err == nil:
				c.metrics.FetchAttempt(metrics.OutcomeSuccess)
				log.WithField("attempt", attempts).Debugf("Calling API: %s", apiURL)
				resp = r
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			case isTimeout(err):
				c.metrics.FetchAttempt(metrics.OutcomeTimeout)
				log.Warnf("Timeout occurred. Retrying %d/%d...", attempts, c.cfg.MaxRetries)
				return err
			default:
				c.metrics.FetchAttempt(metrics.OutcomeError)
				log.WithError(err).WithField("attempt", attempts).Error("An error occurred calling the API")
				return err
			}
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.Delay(c.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && isTimeout(err)
		}),
	)
	if err == nil {
		return resp, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	fetchErr := &prayertime.FetchError{
		Kind:     prayertime.FetchRequest,
		Zone:     zoneCode,
		Date:     date,
		Attempts: attempts,
		Err:      err,
	}
	if isTimeout(err) {
		fetchErr.Kind = prayertime.FetchTimeout
		log.Errorf("API request timed out after %d attempts", attempts)
	}
	return nil, fetchErr
}

func (c *Client) requestURL(date time.Time, zoneCode string) string {
	q := url.Values{}
	q.Set("r", takwimRoute)
	q.Set("period", "date")
	q.Set("date", date.Format(calendar.DateLayout))
	q.Set("zone", zoneCode)
	return c.cfg.BaseURL + "?" + q.Encode()
}

// attempt performs one bounded HTTP round trip, including reading the body.
func (c *Client) attempt(ctx context.Context, apiURL string) (*prayertime.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &StatusError{Code: res.StatusCode}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var out prayertime.Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}
	return &out, nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
