package handler

import (
	"context"

	"kismarket/kis"
)

type QuoteGetter interface {
	GetQuote(ctx context.Context, req kis.QuoteRequest) (*kis.QuoteResponse, error)
	GetKospi(ctx context.Context, stockCode string) (*kis.QuoteResponse, error)
	GetKosdaq(ctx context.Context, stockCode string) (*kis.QuoteResponse, error)
}

type TokenService interface {
	IssueNew(ctx context.Context) (*kis.AccessToken, error)
	Revoke(ctx context.Context) error
	Status() kis.TokenStatus
}

type ApprovalIssuer interface {
	Fetch(ctx context.Context) (*kis.ApprovalKey, error)
}
