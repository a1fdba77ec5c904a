package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/pkg/config"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
)

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "hirelocal",
		ExpirationMinutes: 60,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := jwtConfig()
	providerID := uuid.New()
	payload := AccessTokenPayload{
		UserID:     uuid.New(),
		Role:       enums.MemberRoleProvider,
		ProviderID: &providerID,
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("expected user %s, got %s", payload.UserID, claims.UserID)
	}
	if claims.Role != enums.MemberRoleProvider {
		t.Fatalf("expected provider role, got %s", claims.Role)
	}
	if claims.ProviderID == nil || *claims.ProviderID != providerID {
		t.Fatalf("expected provider id %s, got %v", providerID, claims.ProviderID)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}
}

func TestMintRejectsInvalidPayloads(t *testing.T) {
	cfg := jwtConfig()
	now := time.Now()

	if _, err := MintAccessToken(config.JWTConfig{}, now, AccessTokenPayload{}); err == nil {
		t.Fatal("expected missing secret to fail")
	}
	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: uuid.New(), Role: "wizard"}); err == nil {
		t.Fatal("expected unknown role to fail")
	}
	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleProvider}); err == nil {
		t.Fatal("expected provider without provider id to fail")
	}
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	cfg := jwtConfig()
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleCustomer}

	stale, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), payload)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, stale); err == nil {
		t.Fatal("expected expired token to fail")
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	other := cfg
	other.Secret = "other-secret"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected foreign signature to fail")
	}
}
