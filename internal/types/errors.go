package types

import "errors"

var (
	// ErrMissingDownloadID indicates a download request without the mandatory
	// caller-assigned downloadId. This is a contract violation, not a
	// recoverable condition.
	ErrMissingDownloadID = errors.New("missing downloadId")

	// ErrInvalidMediaType indicates an unrecognized media type field.
	ErrInvalidMediaType = errors.New("invalid media type")

	// ErrMissingURL indicates a download request without any source URL.
	ErrMissingURL = errors.New("missing download url")

	// ErrUnknownCommand indicates a message whose command name has no
	// registered handler.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrTranscoderNotFound indicates the transcoder binary could not be
	// located on this machine.
	ErrTranscoderNotFound = errors.New("transcoder binary not found")

	// ErrChannelClosed indicates the peer closed its end of the pipe and
	// no further frames can be written.
	ErrChannelClosed = errors.New("message channel closed")
)
