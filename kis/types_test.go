package kis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessToken(t *testing.T) {

	t.Run("만료 판정", func(t *testing.T) {
		fresh := &AccessToken{Value: "v", ExpiresIn: 86400, IssuedAt: time.Now()}
		assert.False(t, fresh.IsExpired())
		assert.False(t, fresh.IsStale(30*time.Minute))

		stale := &AccessToken{Value: "v", ExpiresIn: 600, IssuedAt: time.Now()}
		assert.False(t, stale.IsExpired())
		assert.True(t, stale.IsStale(30*time.Minute))

		dead := &AccessToken{Value: "v", ExpiresIn: 0, IssuedAt: time.Now()}
		assert.True(t, dead.IsExpired())
	})

	t.Run("Bearer 형식", func(t *testing.T) {
		token := &AccessToken{Value: "abc"}
		assert.Equal(t, "Bearer abc", token.Bearer())
	})
}

func TestNewQuoteRequest(t *testing.T) {

	t.Run("정상 생성", func(t *testing.T) {
		req, err := NewQuoteRequest(" 005930 ", MarketKospi)
		assert.NoError(t, err)
		assert.Equal(t, "005930", req.StockCode) // 공백은 정리
		assert.Equal(t, MarketKospi, req.Market)
	})

	t.Run("빈 종목코드", func(t *testing.T) {
		_, err := NewQuoteRequest("", MarketKospi)
		assert.Equal(t, KindFatal, KindOf(err))

		_, err = NewQuoteRequest("   ", MarketKosdaq)
		assert.Equal(t, KindFatal, KindOf(err))
	})

	t.Run("제어 문자 포함", func(t *testing.T) {
		_, err := NewQuoteRequest("0059\x0030", MarketKospi)
		assert.Equal(t, KindFatal, KindOf(err))
	})

	t.Run("잘못된 시장 구분", func(t *testing.T) {
		_, err := NewQuoteRequest("005930", "X")
		assert.Equal(t, KindFatal, KindOf(err))
	})
}

func TestApprovalKey(t *testing.T) {

	assert.True(t, (&ApprovalKey{MsgCd: "0"}).IsSuccessful())
	assert.True(t, (&ApprovalKey{MsgCd: "0000"}).IsSuccessful())
	assert.False(t, (&ApprovalKey{MsgCd: "40910000"}).IsSuccessful())

	assert.True(t, (&ApprovalKey{Value: "k"}).HasKey())
	assert.False(t, (&ApprovalKey{Value: "  "}).HasKey())
}

func TestConfigNormalize(t *testing.T) {

	t.Run("환경별 기본 URL", func(t *testing.T) {
		real := &Config{AppKey: "k", AppSecret: "s", Env: EnvReal}
		assert.NoError(t, real.normalize())
		assert.Equal(t, ProdBaseURL, real.BaseURL)
		assert.Equal(t, ProdWebSocketURL, real.WsURL)

		mock := &Config{AppKey: "k", AppSecret: "s"}
		assert.NoError(t, mock.normalize())
		assert.Equal(t, EnvMock, mock.Env) // 기본값은 모의투자
		assert.Equal(t, MockBaseURL, mock.BaseURL)
		assert.Equal(t, MockWebSocketURL, mock.WsURL)
	})

	t.Run("기본 한도와 타임아웃", func(t *testing.T) {
		conf := &Config{AppKey: "k", AppSecret: "s"}
		assert.NoError(t, conf.normalize())

		assert.Equal(t, 20, conf.RateLimit.RequestsPerMinute)
		assert.Equal(t, 10000, conf.RateLimit.RequestsPerDay)
		assert.Equal(t, 5, conf.RateLimit.MaxConcurrent)
		assert.Equal(t, 5*time.Second, conf.Timeout.Connect)
		assert.Equal(t, 30*time.Second, conf.Timeout.Read)
		assert.Equal(t, 30*time.Minute, conf.RefreshLead)
	})

	t.Run("자격증명 누락은 Fatal", func(t *testing.T) {
		err := (&Config{AppSecret: "s"}).normalize()
		assert.Equal(t, KindFatal, KindOf(err))

		err = (&Config{AppKey: "k"}).normalize()
		assert.Equal(t, KindFatal, KindOf(err))
	})

	t.Run("잘못된 환경", func(t *testing.T) {
		err := (&Config{AppKey: "k", AppSecret: "s", Env: "staging"}).normalize()
		assert.Equal(t, KindFatal, KindOf(err))
	})
}
