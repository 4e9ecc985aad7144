package configurator

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrConflict           = errors.New("conflict")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrNotConnected       = errors.New("not connected")
	ErrTransportFailure   = errors.New("request failed")
	ErrNetworkDisabled    = errors.New("network disabled")
	ErrMalformedMessage   = errors.New("malformed inbound message")
	ErrInvalidTransition  = errors.New("invalid connection transition")
)
