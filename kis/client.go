package kis

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Environment selects the vendor environment. 모의투자가 기본값.
type Environment string

const (
	EnvReal Environment = "real"
	EnvMock Environment = "mock"
)

type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerDay    int
	MaxConcurrent     int
}

type TimeoutConfig struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
}

// Config holds the immutable settings of one KIS client. Environment picks
// the REST base and WebSocket URLs unless overridden.
type Config struct {
	AppKey        string
	AppSecret     string
	AccountNumber string
	Env           Environment
	BaseURL       string
	WsURL         string
	RateLimit     RateLimitConfig
	Timeout       TimeoutConfig
	RefreshLead   time.Duration
}

func (c *Config) normalize() error {
	if c.AppKey == "" {
		return newError(KindFatal, "KIS appkey is required")
	}
	if c.AppSecret == "" {
		return newError(KindFatal, "KIS appsecret is required")
	}
	if c.Env == "" {
		c.Env = EnvMock
	}
	if c.Env != EnvReal && c.Env != EnvMock {
		return newError(KindFatal, "environment must be real or mock")
	}
	if c.BaseURL == "" {
		if c.Env == EnvReal {
			c.BaseURL = ProdBaseURL
		} else {
			c.BaseURL = MockBaseURL
		}
	}
	if c.WsURL == "" {
		if c.Env == EnvReal {
			c.WsURL = ProdWebSocketURL
		} else {
			c.WsURL = MockWebSocketURL
		}
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 20
	}
	if c.RateLimit.RequestsPerDay <= 0 {
		c.RateLimit.RequestsPerDay = 10000
	}
	if c.RateLimit.MaxConcurrent <= 0 {
		c.RateLimit.MaxConcurrent = 5
	}
	if c.Timeout.Connect <= 0 {
		c.Timeout.Connect = 5 * time.Second
	}
	if c.Timeout.Read <= 0 {
		c.Timeout.Read = 30 * time.Second
	}
	if c.Timeout.Write <= 0 {
		c.Timeout.Write = 30 * time.Second
	}
	if c.RefreshLead <= 0 {
		c.RefreshLead = 30 * time.Minute
	}
	return nil
}

// Client bundles the market-data access core: one shared HTTP transport per
// environment, the token manager owning the cached access token, and the
// quote/realtime entry points.
type Client struct {
	conf *Config

	Tokens    *TokenManager
	Approvals *ApprovalKeyFetcher
	Quotes    *QuoteClient
	Realtime  *RealtimeSubscriber
}

func NewClient(conf *Config) (*Client, error) {
	if err := conf.normalize(); err != nil {
		return nil, err
	}

	tr := newTransport(conf)
	limiter := NewRateLimiter(conf.RateLimit)
	tokens := NewTokenManager(conf, tr)
	approvals := NewApprovalKeyFetcher(conf, tr)

	return &Client{
		conf:      conf,
		Tokens:    tokens,
		Approvals: approvals,
		Quotes:    NewQuoteClient(conf, tr, tokens, limiter),
		Realtime:  NewRealtimeSubscriber(conf, approvals),
	}, nil
}

func moduleLogger(module string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().Str("Module", module).Timestamp().Logger()
}

// mask hides the middle of a credential for log output.
func mask(v string) string {
	if len(v) < 8 {
		return "****"
	}
	return v[:4] + "****" + v[len(v)-4:]
}
