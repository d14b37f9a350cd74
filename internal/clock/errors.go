package clock

import "errors"

var (
	ErrBusy            = errors.New("clock action already in progress")
	ErrStatusNotLoaded = errors.New("clock status not loaded")
	ErrClockDisabled   = errors.New("clock action disabled")
	ErrSubmitFailed    = errors.New("clock submission failed")
	ErrClosed          = errors.New("clock controller closed")
)
