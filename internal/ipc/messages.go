// Package ipc provides inter-process communication between the installer
// wizard and its background daemon. Messages are newline-delimited JSON over a
// Unix domain socket (Mac/Linux) or a named pipe (Windows); each connection
// carries exactly one request and its response.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies a backend request.
type RequestType string

const (
	ReqCheckDependency RequestType = "check-dependency"
	ReqLogin           RequestType = "login"
	ReqRegister        RequestType = "register"
	ReqRequestWallet   RequestType = "request-wallet"
	ReqStopSyncApps    RequestType = "stop-sync-apps"

	// Daemon management
	ReqStatus   RequestType = "status"
	ReqShutdown RequestType = "shutdown"
)

var (
	// ErrMismatchedResponse is returned when a response does not carry the
	// ID of the request it answers.
	ErrMismatchedResponse = errors.New("response does not match request")

	// ErrUnauthorized is returned to peers running as a different user.
	ErrUnauthorized = errors.New("unauthorized: caller is not the daemon owner")
)

// Request is sent from the wizard to the daemon.
type Request struct {
	ID      string          `json:"id"`
	Type    RequestType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response answers a Request with the same ID. Success=false means the
// daemon could not carry out the request at all; a backend that ran and said
// "no" reports Success=true with a Result whose OK is false.
type Response struct {
	ID      string          `json:"id"`
	Type    RequestType     `json:"type"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Result is the common part of every backend answer.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Credentials is the login payload.
type Credentials struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	EncryptionKey string `json:"encryptionKey"`
}

// FieldStatus reports which login fields the backend accepted.
type FieldStatus struct {
	Email         bool `json:"email"`
	Password      bool `json:"password"`
	EncryptionKey bool `json:"encryptionKey"`
}

// LoginResult answers ReqLogin. Fields is only set on failure, and may be
// missing even then.
type LoginResult struct {
	Result
	Fields *FieldStatus `json:"fields,omitempty"`
}

// Registration is the register payload.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResult answers ReqRegister. EncryptionKey is generated by the backend.
type RegisterResult struct {
	Result
	EncryptionKey string `json:"encryptionKey,omitempty"`
}

// WalletResult answers ReqRequestWallet.
type WalletResult struct {
	Result
	Address string `json:"address,omitempty"`
	Seed    string `json:"seed,omitempty"`
}

// StatusData describes the running daemon.
type StatusData struct {
	Version        string    `json:"version"`
	PID            int       `json:"pid"`
	StartedAt      time.Time `json:"started_at"`
	Uptime         string    `json:"uptime"`
	RunningHelpers int       `json:"running_helpers"`
}

// NewRequest creates a request with a fresh correlation ID. payload may be nil.
func NewRequest(reqType RequestType, payload interface{}) (*Request, error) {
	req := &Request{
		ID:   uuid.NewString(),
		Type: reqType,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", reqType, err)
		}
		req.Payload = data
	}
	return req, nil
}

// NewOKResponse answers req successfully with data (may be nil).
func NewOKResponse(req *Request, data interface{}) (*Response, error) {
	resp := &Response{ID: req.ID, Type: req.Type, Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s result: %w", req.Type, err)
		}
		resp.Data = raw
	}
	return resp, nil
}

// NewErrorResponse answers req with a daemon-side failure.
func NewErrorResponse(req *Request, err string) *Response {
	resp := &Response{Success: false, Error: err}
	if req != nil {
		resp.ID = req.ID
		resp.Type = req.Type
	}
	return resp
}

// Encode serializes a request to JSON.
func (r *Request) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Encode serializes a response to JSON.
func (r *Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRequest deserializes a request from JSON.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if req.Type == "" {
		return nil, errors.New("missing request type")
	}
	return &req, nil
}

// DecodeResponse deserializes a response from JSON.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DecodePayload unmarshals the request payload into v.
func (r *Request) DecodePayload(v interface{}) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%s request has no payload", r.Type)
	}
	return json.Unmarshal(r.Payload, v)
}

// DecodeData unmarshals the response data into v. A response without data
// leaves v untouched.
func (r *Response) DecodeData(v interface{}) error {
	if len(r.Data) == 0 || v == nil {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}
