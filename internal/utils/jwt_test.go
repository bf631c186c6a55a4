package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

func TestNewAccessToken(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "CUSTOMER", time.Hour)
    if err != nil {
        t.Fatal(err)
    }
    if time.Until(tok.Exp) < 59*time.Minute {
        t.Errorf("exp = %v, want about an hour out", tok.Exp)
    }
    parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
    if err != nil || !parsed.Valid {
        t.Fatalf("parse: %v", err)
    }
    claims := parsed.Claims.(jwt.MapClaims)
    if claims["sub"] != "42" || claims["role"] != "CUSTOMER" {
        t.Errorf("claims = %v", claims)
    }
    if _, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("other"), nil }); err == nil {
        t.Error("token verified with the wrong secret")
    }
}
