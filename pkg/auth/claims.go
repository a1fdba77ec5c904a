package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.MemberRole
	ProviderID *uuid.UUID
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients. ProviderID is
// set only for provider sessions and scopes onboarding and payout routes.
type AccessTokenClaims struct {
	UserID     uuid.UUID        `json:"user_id"`
	Role       enums.MemberRole `json:"role"`
	ProviderID *uuid.UUID       `json:"provider_id,omitempty"`
	jwt.RegisteredClaims
}
