package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/monocle-dev/taskflow/internal/models"
)

func TestGenerateAndVerify(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}

	company := "C1"
	token, err := tokens.Generate(models.User{BaseModel: models.BaseModel{ID: "u1"}, Role: models.RoleManager, CompanyID: &company})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if claims.UserID != "u1" || claims.Role != models.RoleManager || claims.CompanyID != "C1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejects(t *testing.T) {
	tokens, _ := NewTokens("secret", time.Hour)
	other, _ := NewTokens("other", time.Hour)

	user := models.User{BaseModel: models.BaseModel{ID: "u1"}, Role: models.RoleStaff}

	foreign, _ := other.Generate(user)

	expiredIssuer, _ := NewTokens("secret", time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredIssuer.Generate(user)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"expired":      expired,
		"unsigned":     none,
		"garbage":      "not-a-token",
	} {
		if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
