package validators

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineBody struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

type statusBody struct {
	Status enums.OrderStatus `json:"status" validate:"required,enum"`
	Lines  []lineBody        `json:"lines" validate:"dive"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	out, _ := typed.Details().(map[string]string)
	return out
}

func TestDecodeJSONBodyAcceptsKnownEnum(t *testing.T) {
	var dest statusBody
	require.NoError(t, DecodeJSONBody(post(`{"status":"shipped"}`), &dest))
	assert.Equal(t, enums.OrderStatusShipped, dest.Status)
}

func TestDecodeJSONBodyRejectsUnknownEnum(t *testing.T) {
	var dest statusBody
	err := DecodeJSONBody(post(`{"status":"teleported"}`), &dest)
	assert.Equal(t, "is not a recognised value", details(t, err)["status"])
}

func TestDecodeJSONBodyReportsNestedPath(t *testing.T) {
	var dest statusBody
	err := DecodeJSONBody(post(`{"status":"paid","lines":[{"quantity":1},{"quantity":0}]}`), &dest)
	assert.Equal(t, "must be at least 1", details(t, err)["lines[1].quantity"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"status":"paid","extra":true}`,
		"two values":    `{"status":"paid"}{"status":"paid"}`,
		"empty":         ``,
		"too large":     `{"status":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		var dest statusBody
		err := DecodeJSONBody(post(body), &dest)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), name)
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "late parcel", SanitizeString("  late\x00 parcel \t", 0))
	assert.Equal(t, "café", SanitizeString("café crème", 4))
	assert.Equal(t, "ok", SanitizeString("ok", 10))
}

func TestParseQueryHelpers(t *testing.T) {
	id := uuid.New()
	r := httptest.NewRequest(http.MethodGet, "/?limit=500&subtotal=-1&vendor_ids="+id.String()+",,", nil)

	_, err := ParseQueryInt(r, "limit", 25, 1, 100)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt64(r, "subtotal", 0)
	assert.Error(t, err)

	ids, err := ParseQueryUUIDs(r, "vendor_ids")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)

	limit, err := ParseQueryInt(r, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, limit)
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id.String())
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(r, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("orderId", "nope")
	_, err = ParseUUIDParam(r, "orderId")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
