package api

import "strings"

// Envelope is the uniform response wrapper every gateway call resolves to.
// Data is nil on failure; Error and Message carry the server's explanation.
type Envelope[T any] struct {
	Data    *T     `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Ok reports whether the envelope carries data. A false result with a nil
// transport error is a soft failure.
func (e Envelope[T]) Ok() bool {
	return e.Data != nil
}

// Value returns the carried data, or the zero value when Data is nil.
func (e Envelope[T]) Value() T {
	if e.Data == nil {
		var zero T
		return zero
	}
	return *e.Data
}

// ErrorMessage returns the user-facing failure text: Error if non-blank,
// else Message, else fallback.
func (e Envelope[T]) ErrorMessage(fallback string) string {
	if strings.TrimSpace(e.Error) != "" {
		return e.Error
	}
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fallback
}

// OkEnvelope builds a success envelope around data.
func OkEnvelope[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Data: &data, Message: message}
}

// FailEnvelope builds a soft-failure envelope.
func FailEnvelope[T any](errText, message string) Envelope[T] {
	return Envelope[T]{Error: errText, Message: message}
}
