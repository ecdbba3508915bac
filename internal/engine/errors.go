package engine

import (
	"errors"
	"fmt"
)

// Status is the engine result code carried by Error.
type Status int

const (
	StatusOK Status = iota
	StatusNotInitialized
	StatusAlreadyInitialized
	StatusFileNotFound
	StatusFormat
	StatusBadManifest
	StatusEventNotFound
	StatusCueNotFound
	StatusParamNotFound
	StatusInvalidParam
	StatusVoiceLimit
	StatusOutput
	StatusCanceled
)

var statusNames = [...]string{
	StatusOK:                 "ok",
	StatusNotInitialized:     "not initialized",
	StatusAlreadyInitialized: "already initialized",
	StatusFileNotFound:       "file not found",
	StatusFormat:             "unsupported or corrupt file",
	StatusBadManifest:        "bad manifest",
	StatusEventNotFound:      "event not found",
	StatusCueNotFound:        "cue not found",
	StatusParamNotFound:      "parameter not found",
	StatusInvalidParam:       "invalid parameter value",
	StatusVoiceLimit:         "voice limit reached",
	StatusOutput:             "output device error",
	StatusCanceled:           "canceled",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Error is returned by every engine call that fails. Nothing in the engine
// retries; the caller decides whether the session survives.
type Error struct {
	Status Status
	Op     string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	s := "engine: " + e.Op + ": " + e.Status.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the status carried by err, StatusOK for nil, or -1 when
// err is not an engine error.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return -1
}

// IsStatus reports whether err is an engine error with the given status.
func IsStatus(err error, s Status) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == s
}

func newError(op string, s Status, msg string) *Error {
	return &Error{Op: op, Status: s, Msg: msg}
}

func wrapError(op string, s Status, err error) *Error {
	return &Error{Op: op, Status: s, Err: err}
}
