package anubis

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/polla/internal/domain/user"
	"github.com/riskibarqy/polla/internal/platform/logging"
	"github.com/riskibarqy/polla/internal/platform/resilience"
	"github.com/riskibarqy/polla/internal/usecase"
)

const (
	adminKeyHeader       = "x-admin-key"
	defaultCacheTTL      = 30 * time.Second
	defaultCacheMaxItems = 10000
	maxIntrospectBytes   = 1 << 20
)

var errAnubisTransient = crerr.New("anubis transient failure")

type Client struct {
	httpClient    *http.Client
	introspectURL string
	adminKey      string
	logger        *logging.Logger
	breaker       *resilience.CircuitBreaker
	breakerCfg    resilience.CircuitBreakerConfig
	listener      resilience.StateListener
	cache         *inMemoryPrincipalCache
}

// Option tweaks optional client behavior.
type Option func(*Client)

// WithBreakerListener reports circuit transitions, typically to metrics.
func WithBreakerListener(listener resilience.StateListener) Option {
	return func(c *Client) {
		c.listener = listener
	}
}

// WithPrincipalCache overrides the introspection cache. A ttl <= 0 disables caching.
func WithPrincipalCache(ttl time.Duration, maxEntries int) Option {
	return func(c *Client) {
		c.cache = newInMemoryPrincipalCache(ttl, maxEntries)
	}
}

func NewClient(
	httpClient *http.Client,
	baseURL, introspectPath, adminKey string,
	breakerCfg resilience.CircuitBreakerConfig,
	logger *logging.Logger,
	opts ...Option,
) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}

	client := &Client{
		httpClient:    httpClient,
		introspectURL: buildURL(baseURL, introspectPath),
		adminKey:      strings.TrimSpace(adminKey),
		logger:        logger.Named("anubis"),
		breakerCfg:    breakerCfg,
		cache:         newInMemoryPrincipalCache(defaultCacheTTL, defaultCacheMaxItems),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.breaker = resilience.NewNamedCircuitBreaker("anubis", client.breakerCfg, client.listener)
	return client
}

// VerifyAccessToken resolves a bearer token to the calling participant.
func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, crerr.Mark(crerr.New("token is required"), usecase.ErrUnauthorized)
	}

	cacheKey := hashToken(token)
	if principal, ok := c.cache.Get(cacheKey); ok {
		return principal, nil
	}

	var principal user.Principal
	err := c.breaker.Execute(func() error {
		var introspectErr error
		principal, introspectErr = c.introspect(ctx, token)
		return introspectErr
	}, isCircuitFailure)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "anubis circuit breaker rejected request", "state", c.breaker.State())
		return user.Principal{}, crerr.Mark(crerr.Wrap(err, "identity provider is temporarily unavailable"), usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return user.Principal{}, err
	}

	c.cache.Set(cacheKey, principal)
	return principal, nil
}

func (c *Client) introspect(ctx context.Context, token string) (user.Principal, error) {
	encoded, err := sonic.Marshal(introspectRequest{Token: token})
	if err != nil {
		return user.Principal{}, crerr.Wrap(err, "marshal introspect request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.introspectURL, bytes.NewReader(encoded))
	if err != nil {
		return user.Principal{}, crerr.Wrap(err, "create introspect request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set(adminKeyHeader, c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return user.Principal{}, crerr.Wrap(err, "request introspection to anubis")
		}
		return user.Principal{}, crerr.Mark(
			crerr.Mark(crerr.Wrap(err, "request introspection to anubis"), errAnubisTransient),
			usecase.ErrDependencyUnavailable,
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIntrospectBytes))
	if err != nil {
		return user.Principal{}, crerr.Mark(crerr.Wrap(err, "read introspect response"), errAnubisTransient)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return user.Principal{}, crerr.Mark(crerr.New("introspection denied"), usecase.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		// anubis answers 403 when the admin key itself is rejected.
		c.logger.ErrorContext(ctx, "anubis rejected admin key", "status_code", resp.StatusCode)
		return user.Principal{}, crerr.Mark(crerr.New("anubis rejected service credentials"), usecase.ErrDependencyUnavailable)
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnContext(ctx, "anubis introspection unavailable", "status_code", resp.StatusCode)
		return user.Principal{}, crerr.Mark(
			crerr.Mark(crerr.Newf("anubis introspection failed with status %d", resp.StatusCode), errAnubisTransient),
			usecase.ErrDependencyUnavailable,
		)
	case resp.StatusCode != http.StatusOK:
		c.logger.WarnContext(ctx, "anubis introspection non-200", "status_code", resp.StatusCode)
		return user.Principal{}, crerr.Mark(crerr.Newf("anubis introspection failed with status %d", resp.StatusCode), usecase.ErrDependencyUnavailable)
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return user.Principal{}, crerr.Mark(crerr.Wrap(err, "unmarshal introspect response"), usecase.ErrDependencyUnavailable)
	}
	if !decoded.Active {
		return user.Principal{}, crerr.Mark(crerr.New("inactive token"), usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return user.Principal{}, crerr.Mark(crerr.New("invalid introspect response: user_id is empty"), usecase.ErrUnauthorized)
	}

	return user.Principal{
		UserID: strings.TrimSpace(decoded.UserID),
		Email:  strings.TrimSpace(decoded.Email),
	}, nil
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
