package controllers

import (
	"net/http"

	"github.com/angelmondragon/marketcart/api/middleware"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/google/uuid"
)

func accountID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.AccountIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account missing from token")
	}
	return id, nil
}
