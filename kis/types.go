package kis

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	ProdBaseURL = "https://openapi.koreainvestment.com:9443"
	MockBaseURL = "https://openapivts.koreainvestment.com:29443"

	ProdWebSocketURL = "ws://ops.koreainvestment.com:21000"
	MockWebSocketURL = "ws://ops.koreainvestment.com:31000"

	tokenEndpoint       = "/oauth2/tokenP"
	tokenRevokeEndpoint = "/oauth2/revokeP"
	approvalEndpoint    = "/oauth2/Approval"
	quoteEndpoint       = "/uapi/domestic-stock/v1/quotations/inquire-price"

	trIDQuote        = "FHKST01010100" // 주식현재가 시세
	trIDRealtimeExec = "H0STCNT0"      // 실시간 체결가
	trIDPingPong     = "PINGPONG"

	grantTypeClientCredentials = "client_credentials"
	custTypePersonal           = "P"
)

// Market identifies the exchange a quote request targets.
type Market string

const (
	MarketKospi  Market = "J"
	MarketKosdaq Market = "Q"
)

// TokenRequest is the body of POST /oauth2/tokenP.
type TokenRequest struct {
	GrantType string `json:"grant_type" validate:"required"`
	AppKey    string `json:"appkey" validate:"required"`
	AppSecret string `json:"appsecret" validate:"required"`
}

func newTokenRequest(appKey, appSecret string) TokenRequest {
	return TokenRequest{
		GrantType: grantTypeClientCredentials,
		AppKey:    appKey,
		AppSecret: appSecret,
	}
}

// AccessToken is the decoded /oauth2/tokenP response plus the local issue
// time. Values are replaced whole; fields are never mutated after issuance.
type AccessToken struct {
	Value     string `json:"access_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
	Expired   string `json:"access_token_token_expired"`

	IssuedAt time.Time `json:"-"`
}

func (t *AccessToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// IsExpired reports whether the token is no longer usable.
// expires_in = 0 은 즉시 만료로 취급.
func (t *AccessToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt())
}

// IsStale reports whether the token expires within lead and should be
// refreshed proactively while remaining usable.
func (t *AccessToken) IsStale(lead time.Duration) bool {
	return time.Until(t.ExpiresAt()) <= lead
}

func (t *AccessToken) Bearer() string {
	return "Bearer " + t.Value
}

// ApprovalKeyRequest is the body of POST /oauth2/Approval. The secret goes
// out under "secretkey", not "appsecret".
type ApprovalKeyRequest struct {
	GrantType string `json:"grant_type" validate:"required"`
	AppKey    string `json:"appkey" validate:"required"`
	SecretKey string `json:"secretkey" validate:"required"`
}

// ApprovalKey is the short-lived WebSocket credential. It is fetched per
// subscription session and never cached across sessions.
type ApprovalKey struct {
	Value    string    `json:"approval_key"`
	MsgCd    string    `json:"msg_cd"`
	Msg      string    `json:"msg1"`
	IssuedAt time.Time `json:"-"`
}

func (a *ApprovalKey) IsSuccessful() bool {
	return a.MsgCd == "0" || a.MsgCd == "0000"
}

func (a *ApprovalKey) HasKey() bool {
	return strings.TrimSpace(a.Value) != ""
}

// QuoteRequest identifies one domestic stock for a current-price inquiry.
type QuoteRequest struct {
	StockCode string
	Market    Market
}

// NewQuoteRequest validates at construction: 공백 종목코드와 J/Q 외 시장구분 거부.
func NewQuoteRequest(stockCode string, market Market) (QuoteRequest, error) {
	code := strings.TrimSpace(stockCode)
	if code == "" {
		return QuoteRequest{}, newError(KindFatal, "stock code is required")
	}
	for _, r := range code {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return QuoteRequest{}, newError(KindFatal, fmt.Sprintf("stock code %q contains non-printable characters", stockCode))
		}
	}
	if market != MarketKospi && market != MarketKosdaq {
		return QuoteRequest{}, newError(KindFatal, fmt.Sprintf("market must be J(KOSPI) or Q(KOSDAQ), got %q", market))
	}
	return QuoteRequest{StockCode: code, Market: market}, nil
}

func KospiRequest(stockCode string) (QuoteRequest, error) {
	return NewQuoteRequest(stockCode, MarketKospi)
}

func KosdaqRequest(stockCode string) (QuoteRequest, error) {
	return NewQuoteRequest(stockCode, MarketKosdaq)
}

// QuoteResponse is the inquire-price envelope. Numeric fields stay strings
// at the wire boundary; 숫자 해석은 호출자 책임.
type QuoteResponse struct {
	RtCd   string      `json:"rt_cd"`
	MsgCd  string      `json:"msg_cd"`
	Msg    string      `json:"msg1"`
	Output QuoteOutput `json:"output"`
}

func (r *QuoteResponse) IsSuccessful() bool {
	return r.RtCd == "0"
}

func (r *QuoteResponse) ErrorMessage() string {
	if r.IsSuccessful() {
		return ""
	}
	return fmt.Sprintf("[%s] %s", r.MsgCd, r.Msg)
}

// QuoteOutput mirrors the vendor output block of v1_국내주식-008.
type QuoteOutput struct {
	CurrentPrice    string `json:"stck_prpr"`      // 주식 현재가
	PriceChange     string `json:"prdy_vrss"`      // 전일 대비
	PriceChangeSign string `json:"prdy_vrss_sign"` // 1:상한 2:상승 3:보합 4:하한 5:하락
	PriceChangeRate string `json:"prdy_ctrt"`      // 전일 대비율

	AskPrice1    string `json:"askp1"`
	BidPrice1    string `json:"bidp1"`
	AskQuantity1 string `json:"askp_rsqn1"`
	BidQuantity1 string `json:"bidp_rsqn1"`

	AccumulatedVolume string `json:"acml_vol"`       // 누적 거래량
	AccumulatedValue  string `json:"acml_tr_pbmn"`   // 누적 거래대금
	SellVolume        string `json:"seln_cntg_csnu"` // 매도 체결 수량
	BuyVolume         string `json:"shnu_cntg_csnu"` // 매수 체결 수량

	OpenPrice string `json:"stck_oprc"` // 시가
	HighPrice string `json:"stck_hgpr"` // 고가
	LowPrice  string `json:"stck_lwpr"` // 저가
	MaxPrice  string `json:"stck_mxpr"` // 상한가
	MinPrice  string `json:"stck_llam"` // 하한가

	StockCode  string `json:"stck_shrn_iscd"`     // 주식 단축 종목코드
	StockName  string `json:"hts_kor_isnm"`       // 종목명
	MarketName string `json:"rprs_mrkt_kor_name"` // 대표 시장 한글명

	MarketCap    string `json:"hts_avls"`  // 시가총액
	ListedShares string `json:"lstn_stcn"` // 상장주수

	StatusCode string `json:"iscd_stat_cls_code"` // 종목 상태 구분 코드
	MarginRate string `json:"marg_rate"`          // 증거금 비율

	TransactionTime string `json:"stck_cntg_hour"` // 주식 체결 시간
	ViCode          string `json:"vi_cls_code"`    // VI 적용 구분 코드
}

// subscribeRequest is the WebSocket subscribe/unsubscribe frame.
type subscribeRequest struct {
	Header subscribeRequestHeader `json:"header"`
	Body   subscribeRequestBody   `json:"body"`
}

type subscribeRequestHeader struct {
	ApprovalKey string `json:"approval_key"`
	CustType    string `json:"custtype"`
	TrType      string `json:"tr_type"` // 1:등록 2:해제
	ContentType string `json:"content-type"`
}

type subscribeRequestBody struct {
	Input subscribeRequestInput `json:"input"`
}

type subscribeRequestInput struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}

func newSubscribeRequest(approvalKey, trType, stockCode string) subscribeRequest {
	return subscribeRequest{
		Header: subscribeRequestHeader{
			ApprovalKey: approvalKey,
			CustType:    custTypePersonal,
			TrType:      trType,
			ContentType: "utf-8",
		},
		Body: subscribeRequestBody{
			Input: subscribeRequestInput{TrID: trIDRealtimeExec, TrKey: stockCode},
		},
	}
}

// realtimeEnvelope is a raw JSON frame from the realtime socket: either the
// subscribe ACK, a PINGPONG heartbeat, or a JSON-framed tick.
type realtimeEnvelope struct {
	Header realtimeHeader `json:"header"`
	Body   realtimeBody   `json:"body"`
}

type realtimeHeader struct {
	TrID     string `json:"tr_id"`
	TrKey    string `json:"tr_key"`
	Encrypt  string `json:"encrypt"`
	Datetime string `json:"datetime"`
}

type realtimeBody struct {
	RtCd   string        `json:"rt_cd"`
	MsgCd  string        `json:"msg_cd"`
	Msg    string        `json:"msg1"`
	Output *RealtimeTick `json:"output"`
}

func (e *realtimeEnvelope) isSuccessful() bool {
	return e.Body.RtCd == "0"
}

// RealtimeTick carries one execution. JSON 프레임은 대문자 키로 내려옴.
type RealtimeTick struct {
	ExecutionTime     string `json:"STCK_CNTG_HOUR"` // 체결 시간 (HHMMSS)
	Price             string `json:"STCK_PRPR"`      // 주식 현재가
	Change            string `json:"PRDY_VRSS"`      // 전일 대비
	ChangeSign        string `json:"PRDY_VRSS_SIGN"` // 1:상한 2:상승 3:보합 4:하한 5:하락
	ChangeRate        string `json:"PRDY_CTRT"`      // 전일 대비율
	AccumulatedVolume string `json:"ACML_VOL"`       // 누적 거래량
	AccumulatedValue  string `json:"ACML_TR_PBMN"`   // 누적 거래 대금
	ExecutionVolume   string `json:"CNTG_VOL"`       // 체결 거래량
}

// RealtimeMessage is what subscribers receive: the transaction id plus the
// parsed tick. Heartbeats and ACK frames are consumed internally and never
// delivered here.
type RealtimeMessage struct {
	TrID      string
	StockCode string
	Output    RealtimeTick
}
