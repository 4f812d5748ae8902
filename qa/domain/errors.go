package domain

import (
	"errors"
)

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSpeakerNotFound means the speaker row or its chat id is missing.
	ErrSpeakerNotFound = errors.New("speaker not found")
	// ErrChatResolutionFailed means the gateway rejected the chat id.
	ErrChatResolutionFailed = errors.New("chat resolution failed")
	// ErrDeliveryFailed means the gateway answered with a non-success result.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrPersistence wraps row store failures.
	ErrPersistence = errors.New("persistence error")
	// ErrDanglingPointer marks a pending pointer to a question that no longer resolves.
	ErrDanglingPointer = errors.New("dangling pending question")
	// ErrAlreadyAnswered is returned when an answer is recorded twice.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidInput marks malformed API input.
	ErrInvalidInput = errors.New("invalid input")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrSpeakerNotFound, "SPEAKER_NOT_FOUND"},
	{ErrChatResolutionFailed, "CHAT_RESOLUTION_FAILED"},
	{ErrDeliveryFailed, "DELIVERY_FAILED"},
	{ErrDanglingPointer, "DANGLING_POINTER"},
	{ErrAlreadyAnswered, "ALREADY_ANSWERED"},
	{ErrInvalidInput, "INVALID_INPUT"},
	{ErrPersistence, "PERSISTENCE_ERROR"},
	{ErrNotFound, "NOT_FOUND"},
}

// Code maps err to a stable upper-case code for logs and API bodies.
// Unknown errors map to "INTERNAL"; nil maps to "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "INTERNAL"
}
