package webterm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storyai/internal/terminal"
)

const protocolVersion = 1

// Outbound frame types.
const (
	frameLine   = "line"
	frameClear  = "clear"
	frameBuffer = "buffer"
	frameState  = "state"
	frameError  = "error"
)

// envelope is every server to client frame.
type envelope struct {
	Version   int       `json:"v"`
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	TS        time.Time `json:"ts"`
	Data      any       `json:"data,omitempty"`
}

type statePayload struct {
	Interactive bool `json:"interactive"`
	Processing  bool `json:"processing"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// inboundMessage is every client to server frame.
//
//	{"type":"input","data":"view story"}
//	{"type":"buffer","data":"vi"}
//	{"type":"key","key":"up|down|tab"}
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	Key  string          `json:"key,omitempty"`
}

type inputError struct {
	code    string
	message string
}

func (e *inputError) Error() string {
	if e == nil {
		return "terminal input error"
	}
	return e.message
}

func badRequest(format string, args ...any) error {
	return &inputError{code: "bad_request", message: fmt.Sprintf(format, args...)}
}

// text decodes the string payload of an input or buffer frame.
func (m inboundMessage) text() (string, error) {
	if len(m.Data) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(m.Data, &s); err != nil {
		return "", badRequest("%s frame data must be a string", m.Type)
	}
	return s, nil
}

func parseInbound(data []byte) (inboundMessage, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return inboundMessage{}, badRequest("invalid message")
	}
	msg.Type = strings.ToLower(strings.TrimSpace(msg.Type))
	msg.Key = strings.ToLower(strings.TrimSpace(msg.Key))
	if msg.Type == "" {
		return inboundMessage{}, badRequest("missing message type")
	}
	return msg, nil
}

// submissionCode maps a rejected submission onto an error frame code.
func submissionCode(err error) string {
	switch err {
	case terminal.ErrBusy:
		return "busy"
	case terminal.ErrBooting:
		return "booting"
	case terminal.ErrEmptyInput:
		return "empty_input"
	case terminal.ErrSessionClosed:
		return "closed"
	default:
		return "input_failed"
	}
}
