// Package errdefs defines the error taxonomy shared by the reconciler:
// configuration errors (non-retryable, the declared configuration must be fixed),
// transient dependency errors (retryable, a dependency has not arrived yet),
// and service errors (retryable, the daemon misbehaved).
package errdefs

import (
	"github.com/cockroachdb/errors"
)

// Error type constants for metrics labels.
const (
	ErrorTypeConfiguration = "configuration"
	ErrorTypeTransient     = "transient_dependency"
	ErrorTypeService       = "service"
	ErrorTypeUnknown       = "unknown"
)

//nolint:gochecknoglobals // sentinel markers for errors.Is
var (
	errConfiguration = errors.New("configuration error")
	errTransient     = errors.New("transient dependency error")
	errService       = errors.New("service error")
)

// NewConfiguration returns a non-retryable configuration error.
func NewConfiguration(msg string) error {
	return errors.Mark(errors.New(msg), errConfiguration)
}

// NewConfigurationf returns a non-retryable configuration error with formatting.
func NewConfigurationf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), errConfiguration)
}

// WrapConfiguration wraps err as a non-retryable configuration error.
func WrapConfiguration(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), errConfiguration)
}

// NewTransient returns a retryable transient dependency error.
func NewTransient(msg string) error {
	return errors.Mark(errors.New(msg), errTransient)
}

// NewTransientf returns a retryable transient dependency error with formatting.
func NewTransientf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), errTransient)
}

// WrapTransient wraps err as a retryable transient dependency error.
func WrapTransient(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), errTransient)
}

// WrapService wraps err as a retryable service error.
func WrapService(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), errService)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, errConfiguration)
}

// IsTransient reports whether err is a transient dependency error.
func IsTransient(err error) bool {
	return errors.Is(err, errTransient)
}

// IsService reports whether err is a service error.
func IsService(err error) bool {
	return errors.Is(err, errService)
}

// Classify returns the metrics label for an error. Returns an empty string
// for nil errors.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConfiguration(err):
		return ErrorTypeConfiguration
	case IsTransient(err):
		return ErrorTypeTransient
	case IsService(err):
		return ErrorTypeService
	default:
		return ErrorTypeUnknown
	}
}
