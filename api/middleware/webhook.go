package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/angelmondragon/marketcart/api/responses"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
)

// WebhookSecretHeader carries the shared secret of payment and carrier callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookSecret admits requests presenting secret. An empty secret rejects
// every request so an unconfigured callback cannot be driven anonymously.
func WebhookSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(secret))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "webhook not configured"))
				return
			}
			got := []byte(strings.TrimSpace(r.Header.Get(WebhookSecretHeader)))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
