package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokens"
)

// Status tags a worker message.
type Status string

const (
	StatusReady    Status = "ready"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
	StatusProgress Status = "progress"
)

// Code classifies an error message.
type Code string

const (
	CodeUnsupportedModel Code = "unsupported_model"
	CodeModelLoad        Code = "model_load"
	CodeEncoding         Code = "encoding"
	CodeWorkerStartup    Code = "worker_startup"
	CodeInvalidRequest   Code = "invalid_request"
)

var (
	// ErrWorkerStartup is matched by every WorkerStartupError.
	ErrWorkerStartup = errors.New("worker startup failed")

	// ErrTerminated is returned when sending to a worker that has stopped.
	ErrTerminated = errors.New("worker terminated")
)

// WorkerStartupError reports a worker that could not initialize.
type WorkerStartupError struct {
	Err error
}

func (e *WorkerStartupError) Error() string {
	return fmt.Sprintf("worker startup failed; %v", e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *WorkerStartupError) Unwrap() []error {
	return []error{ErrWorkerStartup, e.Err}
}

// Request asks the worker to tokenize Text with ModelID. ID is the host's
// generation number and is echoed in every reply.
type Request struct {
	ID      uint64 `json:"id"`
	Text    string `json:"text"`
	ModelID string `json:"modelId"`
}

// Message is a tagged worker reply. Which fields are meaningful depends on
// Status; MarshalJSON writes only those.
type Message struct {
	Status       Status
	ID           uint64
	Tokens       []tokens.Token
	TokenCount   int
	CharCount    int
	EncodingName string
	Error        string
	Code         Code
	Progress     float64
}

type readyWire struct {
	Status Status `json:"status"`
}

type completeWire struct {
	Status       Status         `json:"status"`
	ID           uint64         `json:"id"`
	Tokens       []tokens.Token `json:"tokens"`
	TokenCount   int            `json:"tokenCount"`
	CharCount    int            `json:"charCount"`
	EncodingName string         `json:"encodingName"`
}

type errorWire struct {
	Status Status `json:"status"`
	ID     uint64 `json:"id,omitempty"`
	Error  string `json:"error"`
	Code   Code   `json:"code"`
}

type progressWire struct {
	Status   Status  `json:"status"`
	ID       uint64  `json:"id"`
	Progress float64 `json:"progress"`
}

type messageWire struct {
	Status       Status         `json:"status"`
	ID           uint64         `json:"id"`
	Tokens       []tokens.Token `json:"tokens"`
	TokenCount   int            `json:"tokenCount"`
	CharCount    int            `json:"charCount"`
	EncodingName string         `json:"encodingName"`
	Error        string         `json:"error"`
	Code         Code           `json:"code"`
	Progress     float64        `json:"progress"`
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Status {
	case StatusReady:
		return json.Marshal(readyWire{Status: m.Status})
	case StatusComplete:
		toks := m.Tokens
		if toks == nil {
			toks = []tokens.Token{}
		}
		return json.Marshal(completeWire{
			Status:       m.Status,
			ID:           m.ID,
			Tokens:       toks,
			TokenCount:   m.TokenCount,
			CharCount:    m.CharCount,
			EncodingName: m.EncodingName,
		})
	case StatusError:
		return json.Marshal(errorWire{Status: m.Status, ID: m.ID, Error: m.Error, Code: m.Code})
	case StatusProgress:
		return json.Marshal(progressWire{Status: m.Status, ID: m.ID, Progress: m.Progress})
	default:
		return nil, fmt.Errorf("unknown message status %q", m.Status)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Status {
	case StatusReady, StatusComplete, StatusError, StatusProgress:
	default:
		return fmt.Errorf("unknown message status %q", w.Status)
	}
	*m = Message(w)
	return nil
}

// Stream returns the token stream carried by a complete message.
func (m Message) Stream() *tokens.Stream {
	if m.Status != StatusComplete {
		return nil
	}
	toks := m.Tokens
	if toks == nil {
		toks = []tokens.Token{}
	}
	return &tokens.Stream{
		Tokens:       toks,
		TokenCount:   m.TokenCount,
		CharCount:    m.CharCount,
		EncodingName: m.EncodingName,
	}
}

// Err returns the error carried by an error message, matching the tokenizer
// sentinels through errors.Is.
func (m Message) Err() error {
	if m.Status != StatusError {
		return nil
	}
	return &JobError{Code: m.Code, Message: m.Error}
}

// JobError is a coded failure reported by a worker.
type JobError struct {
	Code    Code
	Message string
}

func (e *JobError) Error() string {
	return e.Message
}

// Is maps codes onto the sentinel errors of the packages that raised them.
func (e *JobError) Is(target error) bool {
	switch e.Code {
	case CodeUnsupportedModel:
		return target == tokenizer.ErrUnsupportedModel
	case CodeModelLoad:
		return target == tokenizer.ErrModelLoad
	case CodeEncoding:
		return target == tokenizer.ErrEncoding
	case CodeWorkerStartup:
		return target == ErrWorkerStartup
	}
	return false
}

func readyMessage() Message {
	return Message{Status: StatusReady}
}

func completeMessage(id uint64, s *tokens.Stream) Message {
	return Message{
		Status:       StatusComplete,
		ID:           id,
		Tokens:       s.Tokens,
		TokenCount:   s.TokenCount,
		CharCount:    s.CharCount,
		EncodingName: s.EncodingName,
	}
}

func progressMessage(id uint64, percent float64) Message {
	return Message{Status: StatusProgress, ID: id, Progress: percent}
}

// errorMessage classifies err into a coded message.
func errorMessage(id uint64, err error) Message {
	return Message{Status: StatusError, ID: id, Error: err.Error(), Code: codeFor(err)}
}

func codeFor(err error) Code {
	switch {
	case errors.Is(err, tokenizer.ErrUnsupportedModel):
		return CodeUnsupportedModel
	case errors.Is(err, tokenizer.ErrModelLoad):
		return CodeModelLoad
	case errors.Is(err, ErrWorkerStartup):
		return CodeWorkerStartup
	case errors.Is(err, errInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeEncoding
	}
}

var errInvalidRequest = errors.New("invalid request")
