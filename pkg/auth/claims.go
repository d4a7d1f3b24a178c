package auth

import (
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Role      enums.ActorRole
	VendorID  *uuid.UUID
	JTI       string
}

// AccessTokenClaims is the identity and role claim this service consumes.
// VendorID is set for vendor accounts and names the vendor they operate.
type AccessTokenClaims struct {
	AccountID uuid.UUID       `json:"account_id"`
	Role      enums.ActorRole `json:"role"`
	VendorID  *uuid.UUID      `json:"vendor_id,omitempty"`
	jwt.RegisteredClaims
}
