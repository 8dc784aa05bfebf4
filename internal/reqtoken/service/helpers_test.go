package service_test

import (
	"github.com/aussiebroadwan/reqtoken/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

// signRaw signs claims without the codec's mandatory claim check.
func signRaw(key []byte, claims jwtx.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = "k1"
	return t.SignedString(key)
}
