package kis

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ApprovalKeyFetcher exchanges the app credentials for the short-lived
// WebSocket approval key. Keys are fetched per subscription session.
type ApprovalKeyFetcher struct {
	conf *Config
	tr   *transport
	lg   zerolog.Logger
}

func NewApprovalKeyFetcher(conf *Config, tr *transport) *ApprovalKeyFetcher {
	return &ApprovalKeyFetcher{
		conf: conf,
		tr:   tr,
		lg:   moduleLogger("KisApproval"),
	}
}

func (f *ApprovalKeyFetcher) Fetch(ctx context.Context) (*ApprovalKey, error) {
	f.lg.Debug().Msg("Requesting WebSocket approval key")

	// 모의 환경에서 테스트 키는 실호출 없이 발급 처리
	if f.conf.Env == EnvMock && isTestCredential(f.conf.AppKey, f.conf.AppSecret) {
		key := &ApprovalKey{
			Value:    fmt.Sprintf("mock-approval-key-%d", time.Now().UnixMilli()),
			MsgCd:    "0",
			Msg:      "SUCCESS",
			IssuedAt: time.Now(),
		}
		f.lg.Info().Str("approvalKey", mask(key.Value)).Msg("Issued mock approval key")
		return key, nil
	}

	req := ApprovalKeyRequest{
		GrantType: grantTypeClientCredentials,
		AppKey:    f.conf.AppKey,
		SecretKey: f.conf.AppSecret,
	}

	var resp ApprovalKey
	err := retryCall(ctx, f.lg, "approval key", func(ctx context.Context) error {
		resp = ApprovalKey{}
		return f.tr.send(ctx, http.MethodPost, approvalEndpoint, nil, nil, req, &resp)
	})
	if err != nil {
		f.lg.Error().Err(err).Msg("Approval key request failed")
		return nil, err
	}

	if !resp.HasKey() || (resp.MsgCd != "" && !resp.IsSuccessful()) {
		return nil, newError(KindProtocol,
			fmt.Sprintf("approval key rejected: msg_cd=%s msg=%s", resp.MsgCd, resp.Msg))
	}

	resp.IssuedAt = time.Now()
	f.lg.Info().
		Str("approvalKey", mask(resp.Value)).
		Msg("WebSocket approval key issued")
	return &resp, nil
}

func isTestCredential(appKey, appSecret string) bool {
	return appKey == "test-app-key" && appSecret == "test-app-secret" ||
		strings.HasPrefix(appKey, "test") || strings.HasPrefix(appSecret, "test")
}
