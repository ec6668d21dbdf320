package repository

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/config"
	"github.com/gatebit/p2ptrader/internal/model"
	"github.com/gatebit/p2ptrader/internal/pkg/apperrors"
	"github.com/gatebit/p2ptrader/internal/pkg/ratelimit"
	"github.com/gatebit/p2ptrader/internal/pkg/retry"
	"github.com/gatebit/p2ptrader/internal/service/ports"
)

const (
	bybitService    = "bybit"
	bybitRecvWindow = "5000"
)

// Bybit v5 API return codes the publisher reacts to.
const (
	bybitRetOK          = 0
	bybitRetRateLimited = 10006
	bybitRetInvalidKey  = 10003
	bybitRetInvalidSign = 10004
)

// BybitClient publishes and removes P2P advertisements through the signed
// v5 API. Like the Gate client it owns its rate limiting and retries.
type BybitClient struct {
	http     *req.Client
	limiter  *ratelimit.Limiter
	policy   *retry.Policy
	retryCfg retry.Config
	logger   *zap.Logger
}

func NewBybitClient(cfg *config.Config, limiter *ratelimit.Limiter, policy *retry.Policy, logger *zap.Logger) *BybitClient {
	client := req.C().
		SetBaseURL(cfg.Bybit.BaseURL).
		SetTimeout(30 * time.Second).
		SetCommonHeader("Content-Type", "application/json")

	return &BybitClient{
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

// PublishAd creates a sell advertisement matching the payout's amount and
// currency, returning the upstream ad id.
func (c *BybitClient) PublishAd(ctx context.Context, account *model.BybitAccount, tx *model.TransactionRecord) (string, error) {
	payload := map[string]any{
		"tokenId":    "USDT",
		"currencyId": tx.Currency,
		"side":       "1", // sell
		"quantity":   tx.Amount.String(),
		"remark":     "auto " + tx.ID,
	}
	return retry.Do(ctx, c.policy, c.retryCfg, "bybit.publish_ad",
		func(ctx context.Context) (string, error) {
			body, err := c.post(ctx, account, "/v5/p2p/item/create", payload)
			if err != nil {
				return "", err
			}
			adID := gjson.Get(body, "result.itemId").String()
			if adID == "" {
				return "", apperrors.Validation("bybit response missing itemId")
			}
			c.logger.Debug("ad published upstream",
				zap.Int64("account_id", account.ID),
				zap.String("ad_id", adID))
			return adID, nil
		})
}

// RemoveAd takes the advertisement offline.
func (c *BybitClient) RemoveAd(ctx context.Context, account *model.BybitAccount, adID string) error {
	payload := map[string]any{"itemId": adID}
	_, err := retry.Do(ctx, c.policy, c.retryCfg, "bybit.remove_ad",
		func(ctx context.Context) (struct{}, error) {
			_, err := c.post(ctx, account, "/v5/p2p/item/cancel", payload)
			return struct{}{}, err
		})
	return err
}

// post signs and sends one API call, classifying HTTP and ret_code failures.
func (c *BybitClient) post(ctx context.Context, account *model.BybitAccount, path string, payload map[string]any) (string, error) {
	if err := c.limiter.Acquire(ctx, bybitService); err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindValidation, "encode bybit payload", err)
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-BAPI-API-KEY", account.APIKey).
		SetHeader("X-BAPI-TIMESTAMP", timestamp).
		SetHeader("X-BAPI-RECV-WINDOW", bybitRecvWindow).
		SetHeader("X-BAPI-SIGN", sign(account.APISecret, timestamp+account.APIKey+bybitRecvWindow+string(body))).
		SetBodyBytes(body).
		Post(path)
	if err != nil {
		return "", apperrors.Network(err)
	}

	respBody := resp.String()
	switch {
	case resp.StatusCode == 403:
		return "", apperrors.AntiBotBlock()
	case resp.StatusCode == 429:
		return "", apperrors.RateLimited(0)
	case resp.StatusCode >= 500:
		return "", apperrors.New(apperrors.KindNetwork, fmt.Sprintf("bybit returned %d", resp.StatusCode))
	case resp.StatusCode != 200:
		return "", apperrors.Validation(fmt.Sprintf("bybit returned %d", resp.StatusCode))
	}

	switch ret := gjson.Get(respBody, "retCode").Int(); ret {
	case bybitRetOK:
		return respBody, nil
	case bybitRetRateLimited:
		return "", apperrors.RateLimited(0)
	case bybitRetInvalidKey, bybitRetInvalidSign:
		return "", apperrors.Auth(gjson.Get(respBody, "retMsg").String())
	default:
		return "", apperrors.Validation(fmt.Sprintf("bybit error %d: %s", ret, gjson.Get(respBody, "retMsg").String()))
	}
}

func sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ ports.AdPublisher = (*BybitClient)(nil)
