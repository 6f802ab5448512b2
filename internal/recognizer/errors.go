package recognizer

import "errors"

// Sentinel errors for the streaming recognizer. Transports translate
// these into their own wire-level error shapes; the recognizer itself
// never imports a transport package.
var (
	ErrDecode           = errors.New("recognizer: could not decode incoming audio")
	ErrResample         = errors.New("recognizer: could not resample incoming audio")
	ErrEmptyFingerprint = errors.New("recognizer: no usable peaks in buffered audio")
	ErrCatalog          = errors.New("recognizer: catalog lookup failed")
	ErrTransport        = errors.New("recognizer: transport closed before a result could be delivered")
	ErrTimeout          = errors.New("recognizer: attempt exceeded its deadline")
	ErrSessionClosed    = errors.New("recognizer: session is closed")
)
