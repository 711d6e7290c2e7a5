package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedQuestion = errors.New("malformed question")
	ErrSessionClosed     = errors.New("quiz session closed")
)

// TransportError wraps a failed QuestionSource or AnswerVerifier call. It is
// recoverable: the session unlocks and offers a retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func asTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
