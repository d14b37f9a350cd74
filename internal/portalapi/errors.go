package portalapi

import (
	"errors"
	"fmt"
	"net/http"
)

type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("portal api: status %d", e.Status)
	}
	return fmt.Sprintf("portal api: status %d: %s", e.Status, e.Message)
}

func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
