package handler

import (
	"context"
	"fmt"
	"time"

	"kismarket/kis"
)

/***************************** Quote ***********************************/

type QuoteGetterMock struct {
	resp *kis.QuoteResponse
	err  error

	calls []kis.QuoteRequest
}

func (mock *QuoteGetterMock) GetQuote(ctx context.Context, req kis.QuoteRequest) (*kis.QuoteResponse, error) {
	fmt.Println("GetQuote Called")

	mock.calls = append(mock.calls, req)
	if mock.err != nil {
		return nil, mock.err
	}
	return mock.resp, nil
}

func (mock *QuoteGetterMock) GetKospi(ctx context.Context, stockCode string) (*kis.QuoteResponse, error) {
	return mock.GetQuote(ctx, kis.QuoteRequest{StockCode: stockCode, Market: kis.MarketKospi})
}

func (mock *QuoteGetterMock) GetKosdaq(ctx context.Context, stockCode string) (*kis.QuoteResponse, error) {
	return mock.GetQuote(ctx, kis.QuoteRequest{StockCode: stockCode, Market: kis.MarketKosdaq})
}

/***************************** Token ***********************************/

type TokenServiceMock struct {
	token   *kis.AccessToken
	err     error
	revoked bool
}

func (mock *TokenServiceMock) IssueNew(ctx context.Context) (*kis.AccessToken, error) {
	fmt.Println("IssueNew Called")

	if mock.err != nil {
		return nil, mock.err
	}
	mock.revoked = false
	return mock.token, nil
}

func (mock *TokenServiceMock) Revoke(ctx context.Context) error {
	fmt.Println("Revoke Called")

	if mock.err != nil {
		return mock.err
	}
	mock.revoked = true
	return nil
}

func (mock *TokenServiceMock) Status() kis.TokenStatus {
	if mock.revoked || mock.token == nil {
		return kis.TokenStatus{}
	}
	exp := mock.token.ExpiresAt()
	return kis.TokenStatus{HasValidToken: true, ExpiresAt: &exp}
}

/***************************** WebSocket ***********************************/

type ApprovalIssuerMock struct {
	err error
}

func (mock *ApprovalIssuerMock) Fetch(ctx context.Context) (*kis.ApprovalKey, error) {
	fmt.Println("Fetch Called")

	if mock.err != nil {
		return nil, mock.err
	}
	return &kis.ApprovalKey{Value: "mock-approval-key", IssuedAt: time.Now()}, nil
}
