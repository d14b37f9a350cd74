package geo

import (
	"context"
	"errors"
	"strconv"
)

const (
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodePositionUnavailable = "POSITION_UNAVAILABLE"
	CodeTimeout             = "TIMEOUT"
	CodeUnsupported         = "UNSUPPORTED"
)

var ErrUnsupported = errors.New("geolocation not supported")

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Locator interface {
	Locate(ctx context.Context) (Position, error)
}

type LocationError struct {
	Code string
}

func (e *LocationError) Error() string {
	return "geolocation failed: " + e.Code
}

// Reported replays what the device told us: either a fix or an error code.
type Reported struct {
	Position  *Position
	ErrorCode string
}

func (r Reported) Locate(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	switch r.ErrorCode {
	case "":
	case CodeUnsupported:
		return Position{}, ErrUnsupported
	default:
		return Position{}, &LocationError{Code: r.ErrorCode}
	}
	if r.Position == nil {
		return Position{}, ErrUnsupported
	}
	return *r.Position, nil
}

// Placeholder is the location text submitted when no fix could be taken.
func Placeholder(err error) string {
	var locErr *LocationError
	if errors.As(err, &locErr) {
		switch locErr.Code {
		case CodePermissionDenied:
			return "Location Permission Denied"
		case CodeTimeout:
			return "Location Request Timed Out"
		default:
			return "Location Unavailable"
		}
	}
	if errors.Is(err, ErrUnsupported) {
		return "Geolocation Not Supported"
	}
	return "Location Unavailable"
}

func FormatCoordinates(pos Position) string {
	return strconv.FormatFloat(pos.Latitude, 'f', 6, 64) + ", " + strconv.FormatFloat(pos.Longitude, 'f', 6, 64)
}
