// Package envelope builds the uniform result shape returned by every
// pipeline step and every HTTP response.
package envelope

import (
	"encoding/json"
	"net/http"
)

const (
	defaultServerError = "Something went wrong"
	defaultBadRequest  = "Missing params"
)

type Envelope struct {
	Signature any    `json:"signature,omitempty"`
	Action    string `json:"action"`
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Error     bool   `json:"error"`
}

// New builds an envelope for status. 200 is the only success code; 500 and
// 400 substitute a default message when none is given, any other code keeps
// the message as passed.
func New(status int, message, action string, data any, signature any) *Envelope {
	switch status {
	case http.StatusOK:
		return &Envelope{Action: action, Status: status, Message: message, Data: data}
	case http.StatusInternalServerError:
		if message == "" {
			message = defaultServerError
		}
		return &Envelope{Action: action, Status: status, Message: message, Data: data, Error: true}
	case http.StatusBadRequest:
		if message == "" {
			message = defaultBadRequest
		}
	}
	return &Envelope{Signature: signature, Action: action, Status: status, Message: message, Data: data, Error: true}
}

func OK(action, message string, data any) *Envelope {
	return New(http.StatusOK, message, action, data, nil)
}

func BadRequest(action, message string) *Envelope {
	return New(http.StatusBadRequest, message, action, nil, nil)
}

func ServerError(action, message string, data any) *Envelope {
	return New(http.StatusInternalServerError, message, action, data, nil)
}

// MarshalJSON always writes the signature key, null when unset, on 400 and
// other non-200/500 envelopes. Success and server-error envelopes never carry
// one.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type plain Envelope
	if e.Status == http.StatusOK || e.Status == http.StatusInternalServerError {
		return json.Marshal(plain(e))
	}
	return json.Marshal(struct {
		Signature any `json:"signature"`
		plain
	}{e.Signature, plain(e)})
}

// HTTPStatus returns the status to send on the wire, falling back to 500
// for envelopes carrying a code net/http would refuse.
func (e *Envelope) HTTPStatus() int {
	if e == nil || e.Status < 100 || e.Status > 999 {
		return http.StatusInternalServerError
	}
	return e.Status
}
