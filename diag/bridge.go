// Package diag forwards driver diagnostics into the log. It is only active in
// builds tagged nova_debug.
package diag

import (
	"context"
	"sync"

	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/logging"
	"golang.org/x/exp/slog"
)

type category struct {
	name     string
	level    slog.Level
	severity gpu.DiagnosticSeverity
	types    gpu.DiagnosticType
}

// Each matching entry produces one log line, so a message carrying several flags
// is logged once per flag.
var categories = []category{
	{name: "error", level: logging.LevelError, severity: gpu.DiagnosticSeverityError},
	{name: "warning", level: logging.LevelWarning, severity: gpu.DiagnosticSeverityWarning},
	{name: "performance", level: logging.LevelWarning, types: gpu.DiagnosticTypePerformance},
	{name: "info", level: logging.LevelInfo, severity: gpu.DiagnosticSeverityInfo},
	{name: "debug", level: logging.LevelDebug, severity: gpu.DiagnosticSeverityVerbose},
}

func (c category) matches(msg gpu.DiagnosticMessage) bool {
	return msg.Severity&c.severity != 0 || msg.Types&c.types != 0
}

// Bridge owns the registration of the diagnostics callback on one instance
type Bridge struct {
	logger    *slog.Logger
	messenger gpu.Messenger
	detached  bool

	mutex sync.RWMutex
}

// Attach registers a callback on the instance's diagnostics channel. When enabled
// is false the returned bridge is inert and the instance is not touched.
func Attach(logger *slog.Logger, instance gpu.Instance, enabled bool) (*Bridge, error) {
	logger.Debug("Bridge::Attach")

	bridge := &Bridge{logger: logger}
	if !enabled {
		return bridge, nil
	}

	channel, ok := instance.Diagnostics()
	if !ok {
		return nil, gpu.CapabilityMissing(nil, "the instance exposes no diagnostics channel")
	}

	messenger, err := channel.Register(gpu.DiagnosticFilter{
		Severities: gpu.DiagnosticSeverityAll,
		Types:      gpu.DiagnosticTypeAll,
	}, bridge.forward)
	if err != nil {
		return nil, gpu.PlatformAPIFailure(err, "could not register the diagnostics callback")
	}

	bridge.messenger = messenger
	return bridge, nil
}

// Active reports whether a callback is currently registered
func (b *Bridge) Active() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.messenger != nil
}

// Detach unregisters the callback. Calling it again does nothing. Messages the
// driver delivers during or after Detach are dropped.
func (b *Bridge) Detach() {
	b.mutex.Lock()
	messenger := b.messenger
	b.messenger = nil
	b.detached = true
	b.mutex.Unlock()

	if messenger == nil {
		return
	}

	b.logger.Debug("Bridge::Detach")
	// the driver may call back from inside Destroy, so the lock is not held here
	messenger.Destroy()
}

// forward runs on the driver's thread and must return normally
func (b *Bridge) forward(msg gpu.DiagnosticMessage) {
	defer func() {
		_ = recover()
	}()

	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if b.detached {
		return
	}

	for _, c := range categories {
		if !c.matches(msg) {
			continue
		}

		b.logger.LogAttrs(context.Background(), c.level, msg.Message,
			slog.String("category", c.name),
			slog.String("source", msg.Source),
			slog.Int("code", int(msg.Code)),
		)
	}
}
