package errors

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// jsonDetailsPrefix tags safe detail payloads that carry reportable details
// as JSON, so the response renderer can pick them out of the chain
const jsonDetailsPrefix = "__json__:"

// ErrorBuilder assembles an error fluently. The builder itself is not an
// error; Mark closes the chain and returns the built error.
type ErrorBuilder struct {
	err error
}

// NewError starts a builder chain from a fresh message
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a builder chain wrapping an existing error
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithMessage prefixes internal context onto the error; it never reaches the
// API response
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithHint attaches the member-facing message the error envelope displays
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf is WithHint with formatting
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured details that are safe to return
// to the caller. Details that fail to marshal are silently dropped.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	marshaled, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, jsonDetailsPrefix+"%s", errors.Safe(string(marshaled)))
	return b
}

// Mark ties the error to one of the sentinel classes; it must be the last
// call in the chain
func (b *ErrorBuilder) Mark(reference error) error {
	b.err = errors.Mark(b.err, reference)
	return b.err
}

// Error returns the error built so far without marking it
func (b *ErrorBuilder) Error() error {
	return b.err
}
