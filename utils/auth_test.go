package utils_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LovationAdmin/dayclap-api/utils"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := utils.HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatal("HashPassword returned the plain password")
	}
	if !utils.CheckPassword("s3cret!", hash) {
		t.Error("CheckPassword rejected the right password")
	}
	if utils.CheckPassword("wrong", hash) {
		t.Error("CheckPassword accepted a wrong password")
	}
	if _, err := utils.HashPassword("short"); err == nil {
		t.Error("HashPassword accepted a 5 character password")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := utils.GenerateAccessToken("user-1", "ada@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	claims, err := utils.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "ada@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl < 23*time.Hour || ttl > utils.AccessTokenTTL {
		t.Errorf("token ttl = %v", ttl)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, utils.Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte("test-secret"))

	otherKey := jwt.NewWithClaims(jwt.SigningMethodHS256, utils.Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	otherKeyToken, _ := otherKey.SignedString([]byte("another-secret"))

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, utils.Claims{UserID: "user-1"})
	noExpiryToken, _ := noExpiry.SignedString([]byte("test-secret"))

	tests := map[string]string{
		"garbage":   "not.a.token",
		"empty":     "",
		"expired":   expiredToken,
		"wrong key": otherKeyToken,
		"no expiry": noExpiryToken,
		"unsigned":  unsignedToken(t),
	}
	for name, token := range tests {
		if _, err := utils.ParseAccessToken(token); err == nil {
			t.Errorf("%s: ParseAccessToken accepted the token", name)
		}
	}
}

func unsignedToken(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, utils.Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	return s
}

func TestGenerateAccessTokenWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := utils.GenerateAccessToken("user-1", "ada@example.com"); err == nil {
		t.Error("GenerateAccessToken succeeded without JWT_SECRET")
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	a, err := utils.GenerateRefreshToken()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := utils.GenerateRefreshToken()
	if a == b {
		t.Error("two refresh tokens are equal")
	}
	if len(a) != 72 || strings.ContainsAny(a, " \n") {
		t.Errorf("refresh token %q has unexpected shape", a)
	}
}

func TestHashRefreshToken(t *testing.T) {
	token, err := utils.GenerateRefreshToken()
	if err != nil {
		t.Fatal(err)
	}
	h := utils.HashRefreshToken(token)
	if len(h) != 64 || strings.Contains(h, token) {
		t.Errorf("hash %q has unexpected shape", h)
	}
	if utils.HashRefreshToken(token) != h {
		t.Error("hash is not stable")
	}
	if utils.HashRefreshToken(token+"x") == h {
		t.Error("different tokens share a hash")
	}
	// sha256("abc")
	if got := utils.HashRefreshToken("abc"); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("HashRefreshToken(abc) = %s", got)
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"USD", "USD", true},
		{"EUR", "EUR", true},
		{" LKR ", "LKR", true},
		{"", "", false},
		{"US", "", false},
		{"DOLLARS", "", false},
	}
	for _, tt := range tests {
		got, err := utils.NormalizeCurrency(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("NormalizeCurrency(%q) = %q, %v; want %q, ok=%v", tt.in, got, err, tt.want, tt.ok)
		}
	}

	if got := utils.FormatCurrency(12.5, "USD", "en"); !strings.Contains(got, "12.5") {
		t.Errorf("FormatCurrency(12.5, USD) = %q", got)
	}
	if got := utils.FormatCurrency(3, "???", "en"); got != "3.00 ???" {
		t.Errorf("FormatCurrency fallback = %q, want %q", got, "3.00 ???")
	}
}
