package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/config"
	"github.com/gatebit/p2ptrader/internal/model"
	"github.com/gatebit/p2ptrader/internal/pkg/apperrors"
	"github.com/gatebit/p2ptrader/internal/pkg/ratelimit"
	"github.com/gatebit/p2ptrader/internal/pkg/retry"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

const gateService = "gate"

// GateClient talks to the Gate.io payout panel. Every call acquires the
// "gate" rate-limit bucket and runs under the retry policy; HTTP outcomes
// are mapped to the error taxonomy so callers never see transport details.
type GateClient struct {
	http     *req.Client
	limiter  *ratelimit.Limiter
	policy   *retry.Policy
	retryCfg retry.Config
	logger   *zap.Logger
}

func NewGateClient(cfg *config.Config, limiter *ratelimit.Limiter, policy *retry.Policy, logger *zap.Logger) *GateClient {
	client := req.C().
		SetBaseURL(cfg.Gate.BaseURL).
		SetTimeout(30 * time.Second).
		SetCommonHeader("Accept", "application/json")

	return &GateClient{
		http:    client,
		limiter: limiter,
		policy:  policy,
		retryCfg: retry.Config{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialDelay:    cfg.Retry.InitialDelay,
			MaxDelay:        cfg.Retry.MaxDelay,
			ExponentialBase: cfg.Retry.ExponentialBase,
		},
		logger: logger,
	}
}

// FetchTransaction returns the payout snapshot, or (nil, nil) when the
// payout does not exist upstream.
func (c *GateClient) FetchTransaction(ctx context.Context, id string) (*model.TransactionRecord, error) {
	record, err := retry.Do(ctx, c.policy, c.retryCfg, "gate.fetch_transaction",
		func(ctx context.Context) (*model.TransactionRecord, error) {
			if err := c.limiter.Acquire(ctx, gateService); err != nil {
				return nil, err
			}
			resp, err := c.http.R().SetContext(ctx).Get("/payments/payouts/" + id)
			if err != nil {
				return nil, apperrors.Network(err)
			}
			body := resp.String()
			if cerr := classifyGateResponse(resp.StatusCode, body); cerr != nil {
				return nil, cerr
			}
			return parsePayout(body)
		})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			c.logger.Debug("payout absent upstream", zap.String("transaction_id", id))
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// ApproveTransaction confirms the payout, optionally attaching receipt
// evidence, and returns the updated snapshot.
func (c *GateClient) ApproveTransaction(ctx context.Context, id string, evidence []byte) (*model.TransactionRecord, error) {
	return retry.Do(ctx, c.policy, c.retryCfg, "gate.approve_transaction",
		func(ctx context.Context) (*model.TransactionRecord, error) {
			if err := c.limiter.Acquire(ctx, gateService); err != nil {
				return nil, err
			}
			r := c.http.R().SetContext(ctx)
			if len(evidence) > 0 {
				r = r.SetFileBytes("attachments[]", "receipt.pdf", evidence)
			}
			resp, err := r.Post("/payments/payouts/" + id + "/approve")
			if err != nil {
				return nil, apperrors.Network(err)
			}
			body := resp.String()
			if cerr := classifyGateResponse(resp.StatusCode, body); cerr != nil {
				return nil, cerr
			}
			return parsePayout(body)
		})
}

// classifyGateResponse maps an HTTP outcome onto the error taxonomy.
// Returns nil for success.
func classifyGateResponse(status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 401:
		return apperrors.SessionExpired()
	case status == 403:
		lower := strings.ToLower(body)
		if strings.Contains(lower, "cloudflare") || strings.Contains(lower, "challenge") {
			return apperrors.AntiBotBlock()
		}
		return apperrors.Auth("gate access denied")
	case status == 404:
		return apperrors.NotFound("payout not found")
	case status == 429:
		return apperrors.RateLimited(retryAfterFrom(body))
	case status >= 500:
		return apperrors.New(apperrors.KindNetwork, fmt.Sprintf("gate returned %d", status))
	default:
		return apperrors.Validation(fmt.Sprintf("gate returned %d", status))
	}
}

func retryAfterFrom(body string) time.Duration {
	if v := gjson.Get(body, "retry_after"); v.Exists() {
		return time.Duration(v.Int()) * time.Second
	}
	return 0
}

// parsePayout extracts the fields the core cares about from the panel's
// payout envelope. The trader amount map is keyed by numeric currency code.
func parsePayout(body string) (*model.TransactionRecord, error) {
	payout := gjson.Get(body, "response.payout")
	if !payout.Exists() {
		return nil, apperrors.Validation("unexpected gate payload: missing payout")
	}

	record := &model.TransactionRecord{
		ID:     payout.Get("id").String(),
		Status: int(payout.Get("status").Int()),
		Wallet: payout.Get("wallet").String(),
	}

	payout.Get("amount.trader").ForEach(func(code, value gjson.Result) bool {
		amount, err := decimal.NewFromString(value.String())
		if err != nil {
			amount = decimal.NewFromFloat(value.Float())
		}
		record.Amount = amount
		record.Currency = currencyFromCode(code.String())
		return false // first entry only
	})

	record.CreatedAt = parseGateTime(payout.Get("created_at").String())
	record.UpdatedAt = parseGateTime(payout.Get("updated_at").String())
	if approved := payout.Get("approved_at").String(); approved != "" {
		t := parseGateTime(approved)
		record.ApprovedAt = &t
	}

	if record.ID == "" {
		return nil, apperrors.Validation("unexpected gate payload: missing payout id")
	}
	return record, nil
}

// currencyFromCode maps ISO 4217 numeric codes used by the panel to letter
// codes; unknown codes pass through unchanged.
func currencyFromCode(code string) string {
	switch code {
	case "643":
		return "RUB"
	case "840":
		return "USD"
	case "978":
		return "EUR"
	default:
		return code
	}
}

func parseGateTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

var _ ports.PayoutClient = (*GateClient)(nil)
