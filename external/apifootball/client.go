package apifootball

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/polla/internal/platform/logging"
	"github.com/riskibarqy/polla/internal/platform/resilience"
	"github.com/riskibarqy/polla/internal/usecase"
)

const (
	defaultBaseURL      = "https://v3.football.api-sports.io"
	defaultTimeout      = 10 * time.Second
	defaultRetryBackoff = time.Second
	apiKeyHeader        = "x-apisports-key"
	maxResponseBytes    = 2 << 20
)

var (
	// ErrMatchNotFoundUpstream is returned when the provider knows no fixture with the id.
	ErrMatchNotFoundUpstream = crerr.New("match not found upstream")

	errTransient = crerr.New("api-football transient failure")
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	// BreakerListener, when set, observes circuit transitions.
	BreakerListener resilience.StateListener
}

type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	flight       resilience.SingleFlight[[]byte]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		token:        strings.TrimSpace(cfg.Token),
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		logger:       logger.Named("apifootball"),
		breaker:      resilience.NewNamedCircuitBreaker("api-football", cfg.CircuitBreaker, cfg.BreakerListener),
	}
}

// FetchMatchState returns the current status and goals of one fixture.
func (c *Client) FetchMatchState(ctx context.Context, externalMatchID string) (usecase.ExternalMatchState, error) {
	externalMatchID = strings.TrimSpace(externalMatchID)
	if externalMatchID == "" {
		return usecase.ExternalMatchState{}, crerr.Newf("external match id is required")
	}

	var envelope fixturesEnvelope
	if err := c.doJSON(ctx, "/fixtures", map[string]string{"id": externalMatchID}, &envelope); err != nil {
		return usecase.ExternalMatchState{}, crerr.Wrapf(err, "fetch fixture id=%s", externalMatchID)
	}
	if err := envelope.providerError(); err != nil {
		return usecase.ExternalMatchState{}, crerr.Wrapf(err, "fetch fixture id=%s", externalMatchID)
	}
	if len(envelope.Response) == 0 {
		return usecase.ExternalMatchState{}, crerr.Wrapf(ErrMatchNotFoundUpstream, "fixture id=%s", externalMatchID)
	}

	item := envelope.Response[0]
	return usecase.ExternalMatchState{
		ExternalID:  externalMatchID,
		StatusShort: strings.TrimSpace(item.Fixture.Status.Short),
		StatusLong:  strings.TrimSpace(item.Fixture.Status.Long),
		HomeGoals:   item.Goals.Home,
		AwayGoals:   item.Goals.Away,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err, _ := c.flight.Do(fullURL, func() ([]byte, error) {
		var body []byte
		execErr := c.breaker.Execute(func() error {
			var reqErr error
			body, reqErr = c.executeRequest(ctx, fullURL)
			return reqErr
		}, isCircuitFailure)
		return body, execErr
	})
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "api-football circuit breaker rejected request", "state", c.breaker.State())
		return crerr.Mark(crerr.Wrap(err, "match data provider is temporarily unavailable"), usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrap(err, "decode provider payload")
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set(apiKeyHeader, c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Mark(crerr.Newf("send request: %s", c.redact(err.Error())), errTransient)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(crerr.Wrap(readErr, "read response body"), errTransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Mark(crerr.Newf("provider status=%d body=%s", resp.StatusCode, c.redact(abbreviateBody(raw))), errTransient)
			default:
				return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, c.redact(abbreviateBody(raw)))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("provider request failed")
	}
	c.logger.WarnContext(ctx, "api-football request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) redact(value string) string {
	value = strings.TrimSpace(value)
	if c.token != "" {
		value = strings.ReplaceAll(value, c.token, "REDACTED")
	}
	return value
}

// IsTransient reports whether err came from a failure worth retrying later.
func IsTransient(err error) bool {
	return crerr.Is(err, errTransient)
}

func isCircuitFailure(err error) bool {
	return err != nil && crerr.Is(err, errTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

type fixturesEnvelope struct {
	Get      string         `json:"get"`
	Results  int            `json:"results"`
	Errors   any            `json:"errors"`
	Response []fixtureEntry `json:"response"`
}

type fixtureEntry struct {
	Fixture fixtureInfo `json:"fixture"`
	Goals   goals       `json:"goals"`
}

type fixtureInfo struct {
	ID     int64         `json:"id"`
	Date   string        `json:"date"`
	Status fixtureStatus `json:"status"`
}

type fixtureStatus struct {
	Long    string `json:"long"`
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

type goals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// providerError turns the body-level "errors" field into an error. The
// provider answers 200 with this field set for quota and key problems; it is
// an empty array on success and an object keyed by cause otherwise.
func (e fixturesEnvelope) providerError() error {
	switch v := e.Errors.(type) {
	case map[string]any:
		if len(v) == 0 {
			return nil
		}
		parts := make([]string, 0, len(v))
		transient := false
		for key, msg := range v {
			if key == "requests" || key == "rateLimit" {
				transient = true
			}
			parts = append(parts, key+": "+strings.TrimSpace(toString(msg)))
		}
		sort.Strings(parts)
		err := crerr.Newf("provider rejected request: %s", strings.Join(parts, "; "))
		if transient {
			return crerr.Mark(err, errTransient)
		}
		return err
	case []any:
		if len(v) == 0 {
			return nil
		}
		return crerr.Newf("provider rejected request: %v", v)
	default:
		return nil
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
