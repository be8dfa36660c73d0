package gpu

import "github.com/cockroachdb/errors"

// Fatal error classes. Use errors.Is against these to classify an error returned
// from any package in this module.
var (
	ErrHardwareUnavailable = errors.New("hardware unavailable")
	ErrCapabilityMissing   = errors.New("capability missing")
	ErrPlatformAPIFailure  = errors.New("platform API failure")
	// ErrInvalidConfiguration is caller-supplied settings the platform cannot honor
	ErrInvalidConfiguration = errors.New("invalid configuration")

	ErrContextClosed = errors.New("render context is closed")
)

var errorKinds = []struct {
	sentinel error
	name     string
}{
	{ErrHardwareUnavailable, "HardwareUnavailable"},
	{ErrCapabilityMissing, "CapabilityMissing"},
	{ErrPlatformAPIFailure, "PlatformAPIFailure"},
	{ErrInvalidConfiguration, "InvalidConfiguration"},
	{ErrContextClosed, "ContextClosed"},
}

// HardwareUnavailable wraps err with msg and classifies the result as ErrHardwareUnavailable
func HardwareUnavailable(err error, msg string) error {
	return mark(err, ErrHardwareUnavailable, msg)
}

func CapabilityMissing(err error, msg string) error {
	return mark(err, ErrCapabilityMissing, msg)
}

func PlatformAPIFailure(err error, msg string) error {
	return mark(err, ErrPlatformAPIFailure, msg)
}

func InvalidConfiguration(err error, msg string) error {
	return mark(err, ErrInvalidConfiguration, msg)
}

func mark(err error, sentinel error, msg string) error {
	if err == nil {
		err = errors.NewWithDepth(2, msg)
	} else {
		err = errors.WrapWithDepth(2, err, msg)
	}
	return errors.Mark(err, sentinel)
}

// Kind returns the name of the error class err belongs to, or "Unknown"
func Kind(err error) string {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.sentinel) {
			return kind.name
		}
	}
	return "Unknown"
}

// IsFatal reports whether err belongs to one of the fatal classes
func IsFatal(err error) bool {
	return errors.Is(err, ErrHardwareUnavailable) ||
		errors.Is(err, ErrCapabilityMissing) ||
		errors.Is(err, ErrPlatformAPIFailure) ||
		errors.Is(err, ErrInvalidConfiguration)
}
