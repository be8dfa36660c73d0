package gpu

//go:generate mockgen -source=diagnostics.go -destination=mocks/diagnostics.go -package=mocks

import "github.com/vkngwrapper/core/v2/common"

type DiagnosticSeverity uint32

var diagnosticSeverityMapping = common.NewFlagStringMapping[DiagnosticSeverity]()

func (f DiagnosticSeverity) Register(str string) {
	diagnosticSeverityMapping.Register(f, str)
}
func (f DiagnosticSeverity) String() string {
	return diagnosticSeverityMapping.FlagsToString(f)
}

const (
	DiagnosticSeverityVerbose DiagnosticSeverity = 1 << iota
	DiagnosticSeverityInfo
	DiagnosticSeverityWarning
	DiagnosticSeverityError

	DiagnosticSeverityAll = DiagnosticSeverityVerbose | DiagnosticSeverityInfo | DiagnosticSeverityWarning | DiagnosticSeverityError
)

func init() {
	DiagnosticSeverityVerbose.Register("Verbose")
	DiagnosticSeverityInfo.Register("Info")
	DiagnosticSeverityWarning.Register("Warning")
	DiagnosticSeverityError.Register("Error")
}

type DiagnosticType uint32

var diagnosticTypeMapping = common.NewFlagStringMapping[DiagnosticType]()

func (f DiagnosticType) Register(str string) {
	diagnosticTypeMapping.Register(f, str)
}
func (f DiagnosticType) String() string {
	return diagnosticTypeMapping.FlagsToString(f)
}

const (
	DiagnosticTypeGeneral DiagnosticType = 1 << iota
	DiagnosticTypeValidation
	DiagnosticTypePerformance

	DiagnosticTypeAll = DiagnosticTypeGeneral | DiagnosticTypeValidation | DiagnosticTypePerformance
)

func init() {
	DiagnosticTypeGeneral.Register("General")
	DiagnosticTypeValidation.Register("Validation")
	DiagnosticTypePerformance.Register("Performance")
}

// DiagnosticMessage is one driver-emitted event as delivered by the platform
type DiagnosticMessage struct {
	Severity DiagnosticSeverity
	Types    DiagnosticType
	// Source names the emitter, usually the message id name of a validation layer
	Source  string
	Code    int32
	Message string
}

type DiagnosticFilter struct {
	Severities DiagnosticSeverity
	Types      DiagnosticType
}

// DiagnosticCallback runs on whatever thread the driver reports from
type DiagnosticCallback func(msg DiagnosticMessage)

// DiagnosticsChannel is the capability to receive driver diagnostics. Bindings
// resolve the underlying entry points however their platform requires.
type DiagnosticsChannel interface {
	Register(filter DiagnosticFilter, callback DiagnosticCallback) (Messenger, error)
}

type Messenger interface {
	Destroy()
}
