package kis

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// QuoteClient issues authenticated current-price inquiries under the shared
// rate-limit admission control.
type QuoteClient struct {
	conf    *Config
	tr      *transport
	tokens  *TokenManager
	limiter *RateLimiter
	lg      zerolog.Logger
}

func NewQuoteClient(conf *Config, tr *transport, tokens *TokenManager, limiter *RateLimiter) *QuoteClient {
	return &QuoteClient{
		conf:    conf,
		tr:      tr,
		tokens:  tokens,
		limiter: limiter,
		lg:      moduleLogger("KisQuote"),
	}
}

// GetQuote runs one inquire-price call: token, rate-limit permit, GET,
// classification. A 401 on the data path triggers exactly one
// invalidate→reissue→retry sequence; a second 401 surfaces as Auth.
func (c *QuoteClient) GetQuote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {

	c.lg.Debug().
		Str("stockCode", req.StockCode).
		Str("market", string(req.Market)).
		Msg("Quote request")

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	var resp QuoteResponse
	err := retryCall(ctx, c.lg, "quote", func(ctx context.Context) error {
		e := c.fetch(ctx, req, &resp)
		if KindOf(e) == KindRateLimit {
			c.limiter.Penalize(retryAfterOf(e))
		}
		return e
	})

	if KindOf(err) == KindAuth {
		c.lg.Warn().Str("stockCode", req.StockCode).Msg("Quote rejected with auth error, reissuing token once")
		c.tokens.Invalidate()
		if _, ierr := c.tokens.IssueNew(ctx); ierr != nil {
			return nil, ierr
		}
		err = c.fetch(ctx, req, &resp)
	}
	if err != nil {
		c.lg.Error().Err(err).Str("stockCode", req.StockCode).Msg("Quote request failed")
		return nil, err
	}

	if !resp.IsSuccessful() {
		return nil, newError(KindProtocol, "quote API returned failure: "+resp.ErrorMessage())
	}

	c.lg.Debug().
		Str("stockCode", resp.Output.StockCode).
		Str("currentPrice", resp.Output.CurrentPrice).
		Msg("Quote request succeeded")
	return &resp, nil
}

// GetKospi binds market J and calls GetQuote.
func (c *QuoteClient) GetKospi(ctx context.Context, stockCode string) (*QuoteResponse, error) {
	req, err := KospiRequest(stockCode)
	if err != nil {
		return nil, err
	}
	return c.GetQuote(ctx, req)
}

// GetKosdaq binds market Q and calls GetQuote.
func (c *QuoteClient) GetKosdaq(ctx context.Context, stockCode string) (*QuoteResponse, error) {
	req, err := KosdaqRequest(stockCode)
	if err != nil {
		return nil, err
	}
	return c.GetQuote(ctx, req)
}

func (c *QuoteClient) fetch(ctx context.Context, req QuoteRequest, out *QuoteResponse) error {

	token, err := c.tokens.GetValidToken(ctx)
	if err != nil {
		return err
	}

	*out = QuoteResponse{}
	return c.tr.send(ctx, http.MethodGet, quoteEndpoint,
		map[string]string{
			"authorization": token.Bearer(),
			"tr_id":         trIDQuote,
		},
		map[string]string{
			"FID_COND_MRKT_DIV_CODE": string(req.Market),
			"FID_INPUT_ISCD":         req.StockCode,
		},
		nil, out)
}
