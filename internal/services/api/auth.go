package api

import (
	"github.com/golang-jwt/jwt/v5"

	"lightbox/internal/modkit/httpkit"
	perr "lightbox/internal/platform/errors"
)

// bearerParser returns a TokenFunc that validates HS256 bearer tokens and
// extracts the subject claim as the user id. Tenancy is unused, the tenant id
// is always empty
func bearerParser(secret []byte) httpkit.TokenFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	return func(token string) (string, string, error) {
		claims := jwt.RegisteredClaims{}
		tok, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil || !tok.Valid {
			return "", "", perr.Unauthorizedf("invalid bearer token")
		}
		if claims.Subject == "" {
			return "", "", perr.Unauthorizedf("token missing subject")
		}
		return claims.Subject, "", nil
	}
}
