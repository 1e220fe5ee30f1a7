package lintas

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// ResponseMode selects how a response body is turned into a payload.
type ResponseMode int

const (
	// ModeEnveloped unwraps {code, data, message, success} bodies and passes
	// anything else through.
	ModeEnveloped ResponseMode = iota
	// ModeRaw returns the body unchanged.
	ModeRaw
)

// String returns the mode name.
func (m ResponseMode) String() string {
	if m == ModeRaw {
		return "raw"
	}
	return "enveloped"
}

// Envelope is the wire shape used by enveloped endpoints.
type Envelope struct {
	Code    json.RawMessage `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Success *bool           `json:"success"`
}

// CodeValue returns the numeric code and whether it was an integral JSON
// number. 200.0 counts as 200; 200.5 is no usable code.
func (e *Envelope) CodeValue() (int, bool) {
	raw := bytes.TrimSpace(e.Code)
	if len(raw) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Succeeded reports business success: code 200 or success true.
func (e *Envelope) Succeeded() bool {
	if code, ok := e.CodeValue(); ok && code == 200 {
		return true
	}
	return e.Success != nil && *e.Success
}

// Normalize turns a 2xx body into the payload handed to the caller. In raw
// mode the body is returned as is. In enveloped mode a JSON object carrying a
// "code" member is unwrapped to its data member on success, and reported as a
// business (or, for code 401, unauthorized) *ClientError on failure. Bodies
// without that shape pass through untouched.
func Normalize(body []byte, mode ResponseMode) (json.RawMessage, *ClientError) {
	if mode == ModeRaw {
		return body, nil
	}

	env, ok := detectEnvelope(body)
	if !ok {
		return body, nil
	}
	if env.Succeeded() {
		return env.Data, nil
	}

	code, _ := env.CodeValue()
	if code == 401 {
		return nil, &ClientError{
			Type:    ErrorTypeUnauthorized,
			Message: "unauthorized, please log in again",
			Code:    code,
			Body:    body,
		}
	}
	msg := env.Message
	if msg == "" {
		msg = "request failed"
	}
	return nil, &ClientError{
		Type:    ErrorTypeBusiness,
		Message: msg,
		Code:    code,
		Body:    body,
	}
}

func detectEnvelope(body []byte) (*Envelope, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return nil, false
	}
	if _, ok := members["code"]; !ok {
		return nil, false
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		// success of an unexpected type; keep the code and treat success as absent
		env = Envelope{Code: members["code"], Data: members["data"]}
		_ = json.Unmarshal(members["message"], &env.Message)
	}
	return &env, true
}
