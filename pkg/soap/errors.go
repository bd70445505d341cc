package soap

import "errors"

// Interpreter failure kinds, matched with errors.Is.
var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrMissingField     = errors.New("missing field")
)

// RequestError is returned by Parse. Message is the text that ends up in the
// soap:Server faultstring.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// Is reports whether target is the error's kind.
func (e *RequestError) Is(target error) bool { return e.Kind == target }

// Unwrap returns the kind sentinel.
func (e *RequestError) Unwrap() error { return e.Kind }

func requestError(kind error, msg string) error {
	return &RequestError{Kind: kind, Message: msg}
}
