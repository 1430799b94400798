package collector

import (
	"context"
	"os"
	"strconv"
	"time"

	"kismarket/kis"

	"github.com/robfig/cron"
	"github.com/rs/zerolog"
)

// 1분 주기 수집
const minuteSpec = "0 * * * * *"

// 연속 호출 간격. 분당 호출 한도 보호용
const callInterval = 200 * time.Millisecond

type QuoteGetter interface {
	GetQuote(ctx context.Context, req kis.QuoteRequest) (*kis.QuoteResponse, error)
}

// Collector polls the current price of the enrolled stock codes every
// minute and logs the result.
type Collector struct {
	q     QuoteGetter
	codes []string
	c     *cron.Cron
	lg    zerolog.Logger
}

func NewCollector(q QuoteGetter, codes []string) *Collector {

	return &Collector{
		q:     q,
		codes: codes,
		lg:    zerolog.New(os.Stdout).With().Str("Module", "Collector").Timestamp().Logger(),
	}
}

func (cl *Collector) Run() {
	c := cron.New()
	c.AddFunc(minuteSpec, cl.CollectEvent)
	c.Start()
	cl.c = c
}

func (cl *Collector) Stop() {
	if cl.c != nil {
		cl.c.Stop()
	}
}

func (cl *Collector) CollectEvent() {

	cl.lg.Info().Int("count", len(cl.codes)).Msg("현재가 수집 시작")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for i, code := range cl.codes {
		if i > 0 {
			time.Sleep(callInterval)
		}
		cl.collect(ctx, code)
	}

	cl.lg.Info().Msg("현재가 수집 완료")
}

func (cl *Collector) collect(ctx context.Context, code string) {

	req, err := kis.NewQuoteRequest(code, determineMarket(code))
	if err != nil {
		cl.lg.Error().Err(err).Str("code", code).Msg("종목코드 유효성 오류")
		return
	}

	resp, err := cl.q.GetQuote(ctx, req)
	if err != nil {
		cl.lg.Error().Err(err).Str("code", code).Msg("현재가 수집 실패")
		return
	}

	out := resp.Output
	cl.lg.Info().
		Str("종목코드", out.StockCode).
		Str("종목명", out.StockName).
		Str("현재가", out.CurrentPrice).
		Str("전일대비", out.PriceChange).
		Str("등락률", out.PriceChangeRate+"%").
		Str("부호", changeSignText(out.PriceChangeSign)).
		Str("거래량", out.AccumulatedVolume).
		Msg("현재가 수집 완료")
}

// 종목코드 앞자리로 시장 구분. 정확한 구분은 종목 마스터 조회가 필요.
func determineMarket(code string) kis.Market {
	n, err := strconv.Atoi(code)
	if err != nil {
		return kis.MarketKospi
	}
	if n < 100000 {
		return kis.MarketKospi
	}
	return kis.MarketKosdaq
}

func changeSignText(sign string) string {
	switch sign {
	case "1":
		return "▲ 상승"
	case "2":
		return "▼ 하락"
	case "3":
		return "→ 보합"
	case "4":
		return "▲ 상한가"
	case "5":
		return "▼ 하한가"
	default:
		return "보합"
	}
}
