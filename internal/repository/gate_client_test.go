//go:build unit

package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gatebit/p2ptrader/internal/pkg/apperrors"
)

func TestClassifyGateResponse_Success(t *testing.T) {
	require.NoError(t, classifyGateResponse(200, `{"response":{}}`))
	require.NoError(t, classifyGateResponse(201, ""))
}

func TestClassifyGateResponse_SessionExpired(t *testing.T) {
	err := classifyGateResponse(401, "")
	require.True(t, apperrors.IsKind(err, apperrors.KindSessionExpired))
}

func TestClassifyGateResponse_AntiBotChallenge(t *testing.T) {
	err := classifyGateResponse(403, "<html>Cloudflare challenge</html>")
	require.True(t, apperrors.IsKind(err, apperrors.KindAntiBotBlock))

	// A plain 403 without challenge markers is an auth failure.
	err = classifyGateResponse(403, `{"error":"forbidden"}`)
	require.True(t, apperrors.IsKind(err, apperrors.KindAuth))
}

func TestClassifyGateResponse_NotFound(t *testing.T) {
	err := classifyGateResponse(404, "")
	require.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	require.False(t, apperrors.IsRetryable(err))
}

func TestClassifyGateResponse_RateLimited(t *testing.T) {
	err := classifyGateResponse(429, `{"retry_after": 17}`)
	require.True(t, apperrors.IsKind(err, apperrors.KindRateLimit))
	require.Equal(t, 17*time.Second, apperrors.SuggestedDelay(err))

	err = classifyGateResponse(429, "")
	require.Equal(t, time.Duration(0), apperrors.SuggestedDelay(err))
}

func TestClassifyGateResponse_ServerError(t *testing.T) {
	err := classifyGateResponse(502, "")
	require.True(t, apperrors.IsKind(err, apperrors.KindNetwork))
	require.True(t, apperrors.IsRetryable(err))
}

func TestClassifyGateResponse_UnexpectedStatus(t *testing.T) {
	err := classifyGateResponse(418, "")
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestParsePayout(t *testing.T) {
	body := `{
		"response": {
			"payout": {
				"id": "tx-42",
				"status": 4,
				"wallet": "79001234567",
				"amount": {"trader": {"643": "1500.50"}},
				"created_at": "2025-06-01T10:00:00Z",
				"updated_at": "2025-06-01 10:05:00",
				"approved_at": ""
			}
		}
	}`

	record, err := parsePayout(body)
	require.NoError(t, err)
	require.Equal(t, "tx-42", record.ID)
	require.Equal(t, 4, record.Status)
	require.Equal(t, "79001234567", record.Wallet)
	require.Equal(t, "RUB", record.Currency)
	require.True(t, record.Amount.Equal(decimal.RequireFromString("1500.50")))
	require.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), record.CreatedAt)
	require.Nil(t, record.ApprovedAt)
}

func TestParsePayout_ApprovedAt(t *testing.T) {
	body := `{
		"response": {
			"payout": {
				"id": "tx-42",
				"status": 5,
				"amount": {"trader": {"840": "10"}},
				"approved_at": "2025-06-01T11:00:00Z"
			}
		}
	}`

	record, err := parsePayout(body)
	require.NoError(t, err)
	require.Equal(t, "USD", record.Currency)
	require.NotNil(t, record.ApprovedAt)
	require.Equal(t, time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC), *record.ApprovedAt)
}

func TestParsePayout_MissingEnvelope(t *testing.T) {
	_, err := parsePayout(`{"response":{}}`)
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = parsePayout(`{"response":{"payout":{"status":4}}}`)
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCurrencyFromCode(t *testing.T) {
	require.Equal(t, "RUB", currencyFromCode("643"))
	require.Equal(t, "USD", currencyFromCode("840"))
	require.Equal(t, "EUR", currencyFromCode("978"))
	require.Equal(t, "999", currencyFromCode("999"))
}
