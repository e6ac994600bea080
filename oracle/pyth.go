package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/barkalona/AISTM7/core"
)

const defaultTimeout = 10 * time.Second

type (
	// PythClient reads a Pyth-style REST price service and reports prices
	// in USD micros per token. It implements core.PriceOracle.
	PythClient struct {
		c      *resty.Client
		clk    clock.Clock
		maxAge time.Duration
	}

	priceResponse struct {
		Id          string `json:"id"`
		Price       int64  `json:"price"`
		Expo        int32  `json:"expo"`
		PublishTime int64  `json:"publish_time"`
	}

	APIError struct {
		StatusCode int
		RawBody    string
	}
)

func (e *APIError) Error() string {
	return fmt.Sprintf("price service error: status=%d body=%s", e.StatusCode, e.RawBody)
}

type OptionFunc func(p *PythClient)

func WithClock(clk clock.Clock) OptionFunc {
	return func(p *PythClient) {
		p.clk = clk
	}
}

func WithTimeout(timeout time.Duration) OptionFunc {
	return func(p *PythClient) {
		p.c.SetTimeout(timeout)
	}
}

// NewPythClient builds a client for baseURL. Prices older than maxAge are
// reported as core.NoPriceFound; a zero maxAge disables the staleness check.
func NewPythClient(baseURL string, maxAge time.Duration, opts ...OptionFunc) *PythClient {
	p := &PythClient{
		c:      resty.New().SetBaseURL(baseURL).SetTimeout(defaultTimeout),
		clk:    clock.New(),
		maxAge: maxAge,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PythClient) GetCurrentPrice(ctx context.Context, feedId string) (*core.Price, error) {
	var body priceResponse
	resp, err := p.c.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/v2/price/" + feedId)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == 404 {
		return nil, core.NoPriceFound
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), RawBody: resp.String()}
	}

	if body.Price <= 0 {
		return nil, core.NoPriceFound
	}

	publishedAt := time.Unix(body.PublishTime, 0)
	if p.maxAge > 0 && p.clk.Now().Sub(publishedAt) > p.maxAge {
		return nil, core.NoPriceFound
	}

	micros, err := toMicros(body.Price, body.Expo)
	if err != nil {
		return nil, err
	}

	return &core.Price{
		Price:     micros,
		Timestamp: publishedAt,
	}, nil
}

// toMicros scales a fixed-point price (price × 10^expo USD) to USD micros,
// floored to the integer grid the policy math runs on.
func toMicros(price int64, expo int32) (uint64, error) {
	micros := decimal.New(price, expo).
		Mul(decimal.NewFromInt(core.USD_MICROS)).
		Floor()

	if !micros.IsPositive() {
		return 0, core.NoPriceFound
	}
	if !micros.BigInt().IsUint64() {
		return 0, core.MathOverflow
	}
	return micros.BigInt().Uint64(), nil
}
