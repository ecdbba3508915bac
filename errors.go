package vpsaudio

import intengine "github.com/cbegin/vpsaudio-go/internal/engine"

// AudioEngineError is returned by every Bridge entry point when an audio
// engine call fails. Status says what went wrong; the session stays usable
// unless the host decides otherwise.
type AudioEngineError = intengine.Error

// Status is the engine result code carried by AudioEngineError.
type Status = intengine.Status

const (
	StatusOK                 = intengine.StatusOK
	StatusNotInitialized     = intengine.StatusNotInitialized
	StatusAlreadyInitialized = intengine.StatusAlreadyInitialized
	StatusFileNotFound       = intengine.StatusFileNotFound
	StatusFormat             = intengine.StatusFormat
	StatusBadManifest        = intengine.StatusBadManifest
	StatusEventNotFound      = intengine.StatusEventNotFound
	StatusCueNotFound        = intengine.StatusCueNotFound
	StatusParamNotFound      = intengine.StatusParamNotFound
	StatusInvalidParam       = intengine.StatusInvalidParam
	StatusVoiceLimit         = intengine.StatusVoiceLimit
	StatusOutput             = intengine.StatusOutput
	StatusCanceled           = intengine.StatusCanceled
)

// IsStatus reports whether err is an AudioEngineError with status s.
func IsStatus(err error, s Status) bool {
	return intengine.IsStatus(err, s)
}
