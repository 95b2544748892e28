// SPDX-License-Identifier: MIT

// Package validate accumulates configuration problems so they can be
// reported together.
package validate

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Error is one rejected field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// ValidationError bundles every problem found by a Validator.
type ValidationError struct {
	errors []Error
}

// Errors returns the individual problems.
func (e ValidationError) Errors() []Error { return e.errors }

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validator collects problems. The zero value is ready to use.
type Validator struct {
	errors []Error
}

// New returns an empty Validator.
func New() *Validator { return &Validator{} }

// AddError records a problem with field.
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) checkf(ok bool, field string, value any, format string, args ...any) {
	if !ok {
		v.AddError(field, fmt.Sprintf(format, args...), value)
	}
}

// IsValid reports whether nothing was recorded.
func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

// Errors returns the recorded problems.
func (v *Validator) Errors() []Error { return v.errors }

// Err returns nil or a ValidationError holding a copy of the problems.
func (v *Validator) Err() error {
	if v.IsValid() {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

// ListenAddr accepts host:port with an optional host. Port 0 is allowed.
func (v *Validator) ListenAddr(field, addr string) {
	v.hostPort(field, addr, false)
}

// HostPort accepts host:port with a mandatory host, as used for dial
// targets such as Redis or an OTLP collector.
func (v *Validator) HostPort(field, addr string) {
	v.hostPort(field, addr, true)
}

func (v *Validator) hostPort(field, addr string, needHost bool) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid address: %v", err), addr)
		return
	}
	if needHost && host == "" {
		v.AddError(field, "address needs a host", addr)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid port %q", portStr), addr)
		return
	}
	v.checkf(port >= 0 && port <= 65535, field, addr, "port must be between 0 and 65535, got %d", port)
}

// Range checks minVal <= value <= maxVal.
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	v.checkf(value >= minVal && value <= maxVal, field, value,
		"value must be between %d and %d, got %d", minVal, maxVal, value)
}

// FloatRange checks minVal <= value <= maxVal.
func (v *Validator) FloatRange(field string, value, minVal, maxVal float64) {
	v.checkf(value >= minVal && value <= maxVal, field, value,
		"value must be between %g and %g, got %g", minVal, maxVal, value)
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	v.checkf(strings.TrimSpace(value) != "", field, value, "value cannot be empty")
}

// OneOf checks value against a fixed set.
func (v *Validator) OneOf(field, value string, allowed []string) {
	v.checkf(slices.Contains(allowed, value), field, value, "value must be one of %v, got %q", allowed, value)
}

// Positive checks value > 0.
func (v *Validator) Positive(field string, value int) {
	v.checkf(value > 0, field, value, "value must be positive, got %d", value)
}

// NonNegative checks value >= 0.
func (v *Validator) NonNegative(field string, value int) {
	v.checkf(value >= 0, field, value, "value cannot be negative, got %d", value)
}

// PositiveDuration checks d > 0.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	v.checkf(d > 0, field, d, "duration must be positive, got %s", d)
}

// NonNegativeDuration checks d >= 0.
func (v *Validator) NonNegativeDuration(field string, d time.Duration) {
	v.checkf(d >= 0, field, d, "duration cannot be negative, got %s", d)
}
