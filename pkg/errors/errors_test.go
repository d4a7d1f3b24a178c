package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeStaleOffer, status: http.StatusConflict, publicMsg: "discount offer no longer available", detailsOK: true},
		{code: CodeSubmission, status: http.StatusBadGateway, publicMsg: "order submission failed", detailsOK: true},
		{code: CodeSessionExpired, status: http.StatusUnauthorized, publicMsg: "session expired, sign in again"},
		{code: CodeChannelUnavailable, status: http.StatusServiceUnavailable, publicMsg: "live updates unavailable", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestHasCodeAndRetryable(t *testing.T) {
	wrapped := fmt.Errorf("submit vendor: %w", New(CodeDependency, "upstream down"))
	if !HasCode(wrapped, CodeDependency) {
		t.Fatalf("expected dependency code through wrap")
	}
	if HasCode(wrapped, CodeValidation) {
		t.Fatalf("unexpected validation code match")
	}
	if !IsRetryable(wrapped) {
		t.Fatalf("dependency errors should be retryable")
	}
	if IsRetryable(New(CodeStaleOffer, "expired")) {
		t.Fatalf("stale offers are not retryable")
	}
	if IsRetryable(stdErrors.New("plain")) {
		t.Fatalf("untyped errors are not retryable")
	}
}

func TestDumpCarriesPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_idempotency_key_key", TableName: "orders"}
	err := Wrap(CodeConflict, fmt.Errorf("insert order: %w", pgErr), "order already exists")

	trace := Dump(err)
	if trace.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %q", trace.Code)
	}
	if trace.PG == nil || trace.PG.Constraint != "orders_idempotency_key_key" {
		t.Fatalf("expected pg constraint in trace, got %+v", trace.PG)
	}
	if len(trace.Chain) < 3 {
		t.Fatalf("expected full unwrap chain, got %v", trace.Chain)
	}
	if fields := trace.Fields(); fields["pg_code"] != "23505" {
		t.Fatalf("expected pg_code field, got %v", fields["pg_code"])
	}
}

func TestDumpOmitsPostgresFieldsForPlainErrors(t *testing.T) {
	fields := Dump(New(CodeValidation, "bad quantity")).Fields()
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("unexpected pg fields: %v", fields)
	}
	if Dump(nil).Message != "" {
		t.Fatalf("nil error should dump empty")
	}
}
