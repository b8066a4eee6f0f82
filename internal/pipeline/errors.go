package pipeline

import (
	"errors"
	"net/http"

	"trade-reporter/internal/envelope"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindPersistence ErrorKind = "persistence"
	KindBuild       ErrorKind = "build"
	KindSink        ErrorKind = "sink"
)

// StepError is the failure of one step. Status, Message and Data become the
// failure envelope; Err is the underlying cause.
type StepError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Data    any
	Err     error
}

func (e *StepError) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func validationError(message string, data any) *StepError {
	return &StepError{Kind: KindValidation, Status: http.StatusBadRequest, Message: message, Data: data}
}

func internalError(kind ErrorKind, message string, data any, err error) *StepError {
	return &StepError{Kind: kind, Status: http.StatusInternalServerError, Message: message, Data: data, Err: err}
}

// errorEnvelope turns a step failure into its envelope. Errors that are not
// a *StepError are reported as a generic 500.
func errorEnvelope(action string, err error) *envelope.Envelope {
	var se *StepError
	if errors.As(err, &se) {
		return envelope.New(se.Status, se.Message, action, se.Data, nil)
	}
	return envelope.ServerError(action, "", err.Error())
}

// KindOf returns the kind of a pipeline error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
