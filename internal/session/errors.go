package session

import "errors"

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrLoggedOut      = errors.New("session logged out")
	ErrSessionExpired = errors.New("session expired")
)
