//go:build unit

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/model"
	"github.com/gatebit/p2ptrader/internal/pkg/clock"
	"github.com/gatebit/p2ptrader/internal/service"
)

// memStore keeps snapshots in memory; good enough for handler tests.
type memStore struct {
	mu       sync.Mutex
	snapshot *model.AccountSnapshot
}

func (s *memStore) Load(_ context.Context) (*model.AccountSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return model.NewAccountSnapshot(), nil
	}
	return s.snapshot.Clone(), nil
}

func (s *memStore) Save(_ context.Context, snapshot *model.AccountSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot.Clone()
	return nil
}

func newAccountTestRouter(t *testing.T) (*gin.Engine, *service.AccountPool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool, err := service.NewAccountPool(context.Background(), &memStore{}, clock.New(), zap.NewNop(), 4)
	require.NoError(t, err)

	h := NewAccountHandler(pool)
	r := gin.New()
	r.GET("/accounts/gate", h.ListGateAccounts)
	r.POST("/accounts/gate", h.CreateGateAccount)
	r.PUT("/accounts/gate/:id/balance", h.UpdateGateBalance)
	r.GET("/accounts/bybit", h.ListBybitAccounts)
	r.POST("/accounts/bybit", h.CreateBybitAccount)
	r.POST("/accounts/bybit/:id/release", h.ReleaseAdSlot)
	r.GET("/stats", h.Stats)
	return r, pool
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAccountHandler_CreateGateAccount(t *testing.T) {
	r, _ := newAccountTestRouter(t)

	w := doJSON(r, http.MethodPost, "/accounts/gate",
		`{"email":"trader@gate.io","password":"secret"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, int64(1), gjson.Get(w.Body.String(), "data.id").Int())
}

func TestAccountHandler_CreateGateAccount_BadEmail(t *testing.T) {
	r, _ := newAccountTestRouter(t)

	w := doJSON(r, http.MethodPost, "/accounts/gate",
		`{"email":"not-an-email","password":"secret"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandler_CreateGateAccount_Duplicate(t *testing.T) {
	r, _ := newAccountTestRouter(t)

	body := `{"email":"trader@gate.io","password":"secret"}`
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/accounts/gate", body).Code)
	require.Equal(t, http.StatusConflict, doJSON(r, http.MethodPost, "/accounts/gate", body).Code)
}

func TestAccountHandler_ListGateAccounts(t *testing.T) {
	r, pool := newAccountTestRouter(t)

	_, err := pool.AddGateAccount(context.Background(), "a@x.io", "p")
	require.NoError(t, err)

	w := doJSON(r, http.MethodGet, "/accounts/gate", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(1), gjson.Get(w.Body.String(), "data.#").Int())
}

func TestAccountHandler_UpdateGateBalance(t *testing.T) {
	r, pool := newAccountTestRouter(t)

	id, err := pool.AddGateAccount(context.Background(), "a@x.io", "p")
	require.NoError(t, err)

	w := doJSON(r, http.MethodPut, "/accounts/gate/1/balance", `{"balance":"99.95"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, pool.GetGateAccount(id).Balance.String() == "99.95")

	w = doJSON(r, http.MethodPut, "/accounts/gate/42/balance", `{"balance":"1"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPut, "/accounts/gate/1/balance", `{"balance":"abc"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/accounts/gate/xyz/balance", `{"balance":"1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandler_ReleaseAdSlot(t *testing.T) {
	r, pool := newAccountTestRouter(t)
	ctx := context.Background()

	id, err := pool.AddBybitAccount(ctx, "one", "k", "s")
	require.NoError(t, err)
	_, err = pool.AcquireBybitAccountForAd(ctx)
	require.NoError(t, err)

	w := doJSON(r, http.MethodPost, "/accounts/bybit/1/release", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, pool.GetBybitAccount(id).ActiveAdCount)

	w = doJSON(r, http.MethodPost, "/accounts/bybit/42/release", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccountHandler_Stats(t *testing.T) {
	r, pool := newAccountTestRouter(t)
	ctx := context.Background()

	_, err := pool.AddGateAccount(ctx, "a@x.io", "p")
	require.NoError(t, err)
	_, err = pool.AddBybitAccount(ctx, "one", "k", "s")
	require.NoError(t, err)

	w := doJSON(r, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Equal(t, int64(1), gjson.Get(body, "data.gate_active").Int())
	require.Equal(t, int64(1), gjson.Get(body, "data.bybit_available").Int())
	require.Equal(t, int64(0), gjson.Get(body, "data.total_active_ads").Int())
}
