package usecase

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	stateTTL     = 10 * time.Minute
	statePurpose = "gmail_oauth"
)

type stateClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func signState(secret string, now time.Time) (string, error) {
	claims := stateClaims{
		Purpose: statePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verifyState(secret, state string) error {
	token, err := jwt.ParseWithClaims(state, &stateClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(*stateClaims)
	if !ok || claims.Purpose != statePurpose {
		return errors.New("invalid state claims")
	}
	return nil
}
