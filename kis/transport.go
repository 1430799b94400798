package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// 응답 본문 메모리 상한
const maxResponseBytes = 1 << 20

const userAgent = "kismarket/1.0"

// transport is the shared HTTP layer: one pooled connection set per
// environment, per-call timeouts, default vendor headers, bounded decoding.
type transport struct {
	client    *http.Client
	baseURL   string
	appKey    string
	appSecret string
	lg        zerolog.Logger
}

func newTransport(conf *Config) *transport {
	dialer := &net.Dialer{Timeout: conf.Timeout.Connect}

	return &transport{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   conf.Timeout.Connect,
				ResponseHeaderTimeout: conf.Timeout.Read,
				MaxIdleConns:          32,
				MaxIdleConnsPerHost:   8,
				IdleConnTimeout:       90 * time.Second,
			},
			Timeout: conf.Timeout.Read + conf.Timeout.Write,
		},
		baseURL:   conf.BaseURL,
		appKey:    conf.AppKey,
		appSecret: conf.AppSecret,
		lg:        moduleLogger("KisTransport"),
	}
}

/*
중요!
request body에 nil을 바로 넣어야 빈 body가 됨.
nil을 json.Marshal해서 넣으면 "null"이라는 json 데이터가 형성되어 다른 결과 초래.
*/
func (t *transport) send(ctx context.Context, method, endpoint string, header map[string]string, query map[string]string, body any, out any) error {

	u := t.baseURL + endpoint
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var rb io.Reader
	if body != nil {
		bodyByte, err := json.Marshal(body)
		if err != nil {
			return wrapError(KindFatal, "request body marshaling failed", err)
		}
		rb = bytes.NewBuffer(bodyByte)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rb)
	if err != nil {
		return wrapError(KindFatal, "request creation failed", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("appkey", t.appKey)
	req.Header.Set("appsecret", t.appSecret)
	req.Header.Set("custtype", custTypePersonal)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	t.lg.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("Executing API request")

	res, err := t.client.Do(req)
	if err != nil {
		// 호출자 취소는 그대로 전파
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return wrapError(KindTransient, "HTTP request failed", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return wrapError(KindTransient, "response read failed", err)
	}

	t.lg.Debug().
		Int("status", res.StatusCode).
		Int("bytes", len(raw)).
		Msg("Response received")

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return classifyStatus(res.StatusCode, snippet(raw), res.Header.Get("Retry-After"))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return wrapError(KindProtocol, fmt.Sprintf("response unmarshal failed: %s", snippet(raw)), err)
	}
	return nil
}

func snippet(raw []byte) string {
	const max = 256
	if len(raw) > max {
		raw = raw[:max]
	}
	return string(raw)
}
