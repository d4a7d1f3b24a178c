package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketcart/api/controllers"
	"github.com/angelmondragon/marketcart/api/middleware"
	"github.com/angelmondragon/marketcart/internal/checkout"
	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/internal/orders"
	"github.com/angelmondragon/marketcart/pkg/auth"
	"github.com/angelmondragon/marketcart/pkg/config"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/google/uuid"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubDiscounts struct{ discounts.Service }

func (stubDiscounts) List(ctx context.Context, vendorIDs []uuid.UUID) ([]discounts.Offer, error) {
	return []discounts.Offer{}, nil
}

type stubOrders struct {
	orders.Service
	delivered int
}

func (s *stubOrders) CarrierDelivered(ctx context.Context, orderID uuid.UUID) (*orders.Order, error) {
	s.delivered++
	return &orders.Order{ID: orderID, Status: enums.OrderStatusDelivered}, nil
}

func (s *stubOrders) List(ctx context.Context, actor orders.Actor, filter orders.Filter) ([]orders.Order, error) {
	return []orders.Order{}, nil
}

type stubCheckout struct{}

func (stubCheckout) Quote(ctx context.Context, in checkout.Input) (*checkout.QuoteResult, error) {
	return &checkout.QuoteResult{}, nil
}

func (stubCheckout) Checkout(ctx context.Context, in checkout.Input) (*checkout.Outcome, error) {
	return nil, errors.New("not used")
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "dev"},
		JWT:      config.JWTConfig{Secret: "secret", Issuer: "marketcart", ExpirationMinutes: 15},
		Webhooks: config.WebhooksConfig{CarrierSecret: "carrier-secret"},
	}
}

func newTestRouter(t *testing.T, dbErr error) (http.Handler, *stubOrders) {
	t.Helper()
	ordersSvc := &stubOrders{}
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "marketcart_test_total"}))
	router := NewRouter(testConfig(), logger.Nop(), Deps{
		DB:        stubPinger{err: dbErr},
		Gatherer:  reg,
		Discounts: stubDiscounts{},
		Orders:    ordersSvc,
		Checkout:  func(uuid.UUID) controllers.CheckoutService { return stubCheckout{} },
	})
	return router, ordersSvc
}

func bearer(t *testing.T, role enums.ActorRole, vendorID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(testConfig().JWT, time.Now(), auth.AccessTokenPayload{
		AccountID: uuid.New(),
		Role:      role,
		VendorID:  vendorID,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Marketcart-Env"))

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down, _ := newTestRouter(t, errors.New("connection refused"))
	rec = serve(down, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketcart_test_total")
}

func TestAPIRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/discounts", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBuyerReadsDiscountsAndOrders(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	for _, path := range []string{"/api/v1/discounts", "/api/v1/orders"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", bearer(t, enums.ActorRoleBuyer, nil))
		rec := serve(router, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestVendorCannotCheckout(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	vendorID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, enums.ActorRoleVendor, &vendorID))
	rec := serve(router, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRoutesRejectBuyer(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", bearer(t, enums.ActorRoleBuyer, nil))
	assert.Equal(t, http.StatusForbidden, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", bearer(t, enums.ActorRoleAdmin, nil))
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
}

func TestWebhookSecrets(t *testing.T) {
	router, ordersSvc := newTestRouter(t, nil)
	body := `{"order_id":"` + uuid.NewString() + `"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/carrier", strings.NewReader(body))
	req.Header.Set(middleware.WebhookSecretHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/carrier", strings.NewReader(body))
	req.Header.Set(middleware.WebhookSecretHeader, "carrier-secret")
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
	assert.Equal(t, 1, ordersSvc.delivered)

	// no payment secret configured
	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
	assert.Equal(t, http.StatusForbidden, serve(router, req).Code)
}
