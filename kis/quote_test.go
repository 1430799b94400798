package kis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

const samsungQuoteJSON = `{
  "rt_cd": "0",
  "msg_cd": "MCA00000",
  "msg1": "정상처리 되었습니다.",
  "output": {
    "stck_prpr": "75000",
    "prdy_vrss": "-500",
    "prdy_vrss_sign": "5",
    "prdy_ctrt": "-0.66",
    "stck_oprc": "75500",
    "stck_hgpr": "76000",
    "stck_lwpr": "74800",
    "acml_vol": "12345678",
    "acml_tr_pbmn": "926000000000",
    "stck_shrn_iscd": "005930",
    "hts_kor_isnm": "삼성전자",
    "rprs_mrkt_kor_name": "KOSPI",
    "stck_cntg_hour": "153000"
  }
}`

func newQuoteTestClient(t *testing.T, baseURL string) *QuoteClient {
	t.Helper()

	conf := newTestConfig(t, baseURL)
	tr := newTransport(conf)
	return NewQuoteClient(conf, tr, NewTokenManager(conf, tr), NewRateLimiter(conf.RateLimit))
}

func TestGetQuote(t *testing.T) {

	t.Run("성공 테스트", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case tokenEndpoint:
				w.Write(tokenJSON("token-1", 86400))
			case quoteEndpoint:
				assert.Equal(t, "Bearer token-1", r.Header.Get("authorization"))
				assert.Equal(t, trIDQuote, r.Header.Get("tr_id"))
				assert.Equal(t, "test-app-key", r.Header.Get("appkey"))
				assert.Equal(t, "J", r.URL.Query().Get("FID_COND_MRKT_DIV_CODE"))
				assert.Equal(t, "005930", r.URL.Query().Get("FID_INPUT_ISCD"))
				w.Write([]byte(samsungQuoteJSON))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer srv.Close()

		c := newQuoteTestClient(t, srv.URL)
		resp, err := c.GetKospi(context.Background(), "005930")

		assert.NoError(t, err)
		assert.True(t, resp.IsSuccessful())
		assert.Equal(t, "삼성전자", resp.Output.StockName)
		assert.Equal(t, "75000", resp.Output.CurrentPrice)
		assert.Equal(t, "-500", resp.Output.PriceChange)
		assert.Equal(t, "5", resp.Output.PriceChangeSign)
		assert.Equal(t, "12345678", resp.Output.AccumulatedVolume)
		assert.Equal(t, "153000", resp.Output.TransactionTime)
	})

	t.Run("401은 토큰 재발급 후 1회 재시도", func(t *testing.T) {
		var tokenHits, quoteHits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case tokenEndpoint:
				n := tokenHits.Add(1)
				if n == 1 {
					w.Write(tokenJSON("token-stale", 86400))
				} else {
					w.Write(tokenJSON("token-fresh", 86400))
				}
			case quoteEndpoint:
				quoteHits.Add(1)
				if r.Header.Get("authorization") != "Bearer token-fresh" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				w.Write([]byte(samsungQuoteJSON))
			}
		}))
		defer srv.Close()

		c := newQuoteTestClient(t, srv.URL)
		resp, err := c.GetKospi(context.Background(), "005930")

		assert.NoError(t, err)
		assert.Equal(t, "75000", resp.Output.CurrentPrice)
		assert.Equal(t, int32(2), tokenHits.Load())
		assert.Equal(t, int32(2), quoteHits.Load())
	})

	t.Run("재발급 후에도 401이면 Auth 오류", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case tokenEndpoint:
				w.Write(tokenJSON("token-1", 86400))
			case quoteEndpoint:
				w.WriteHeader(http.StatusUnauthorized)
			}
		}))
		defer srv.Close()

		c := newQuoteTestClient(t, srv.URL)
		_, err := c.GetKospi(context.Background(), "005930")

		assert.Equal(t, KindAuth, KindOf(err))
	})

	t.Run("비즈니스 실패는 프로토콜 오류", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case tokenEndpoint:
				w.Write(tokenJSON("token-1", 86400))
			case quoteEndpoint:
				w.Write([]byte(`{"rt_cd":"1","msg_cd":"EGW00123","msg1":"기간이 만료된 token 입니다."}`))
			}
		}))
		defer srv.Close()

		c := newQuoteTestClient(t, srv.URL)
		_, err := c.GetKospi(context.Background(), "005930")

		assert.Equal(t, KindProtocol, KindOf(err))
		assert.Contains(t, err.Error(), "EGW00123")
	})

	t.Run("429는 RateLimit 오류", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case tokenEndpoint:
				w.Write(tokenJSON("token-1", 86400))
			case quoteEndpoint:
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
			}
		}))
		defer srv.Close()

		c := newQuoteTestClient(t, srv.URL)
		_, err := c.GetKospi(context.Background(), "005930")

		assert.Equal(t, KindRateLimit, KindOf(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("파라미터 유효성", func(t *testing.T) {
		c := newQuoteTestClient(t, "http://unused")

		_, err := c.GetKospi(context.Background(), "")
		assert.Equal(t, KindFatal, KindOf(err))

		_, err = c.GetKosdaq(context.Background(), "  ")
		assert.Equal(t, KindFatal, KindOf(err))
	})
}
