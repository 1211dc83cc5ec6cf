package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the backend answers with no text.
var ErrEmptyResponse = errors.New("llmclient: empty response")

type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindTimeout   ErrorKind = "timeout"
	KindEmpty     ErrorKind = "empty"
)

// GenerationError is one failed generate call.
type GenerationError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generate (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Wrap classifies err for provider. A nil err stays nil and an existing
// *GenerationError is returned unchanged.
func Wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	kind := KindTransport
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, ErrEmptyResponse):
		kind = KindEmpty
	}
	return &GenerationError{Provider: provider, Kind: kind, Err: err}
}

// emptyCheck turns blank provider output into ErrEmptyResponse.
func emptyCheck(provider, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", Wrap(provider, ErrEmptyResponse)
	}
	return text, nil
}
