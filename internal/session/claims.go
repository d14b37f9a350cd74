package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	EmployeeID string
	ExpiresAt  time.Time
}

// ReadClaims extracts the employee id and expiry from a token issued by the HR
// API. The signature is checked by the HR API on every call, not here.
func ReadClaims(token string) (Claims, error) {
	token = strings.Trim(strings.TrimSpace(token), "\"'")
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	employeeID := stringClaim(claims, "employee_id")
	if employeeID == "" {
		employeeID = stringClaim(claims, "sub")
	}
	if employeeID == "" {
		return Claims{}, fmt.Errorf("%w: no employee id", ErrInvalidToken)
	}

	out := Claims{EmployeeID: employeeID}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time.UTC()
	}
	return out, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
