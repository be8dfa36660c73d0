package diag

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/gpu/mocks"
	"github.com/coler706/nova-renderer/internal/gputest"
	"github.com/coler706/nova-renderer/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

func readyBridge(t *testing.T, setup gputest.Setup) (*gputest.Platform, *Bridge, *bytes.Buffer) {
	platform := gputest.NewPlatform(setup)
	instance, err := platform.CreateInstance(gpu.InstanceInfo{})
	require.NoError(t, err)

	var buf bytes.Buffer
	bridge, err := Attach(logging.New(&buf, logging.LevelTrace), instance, true)
	require.NoError(t, err)
	buf.Reset()

	return platform, bridge, &buf
}

func TestForwardCategories(t *testing.T) {
	testCases := map[string]struct {
		Message  gpu.DiagnosticMessage
		Expected []string
	}{
		"Error": {
			Message:  gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityError, Types: gpu.DiagnosticTypeValidation, Message: "bad handle"},
			Expected: []string{`level=ERROR msg="bad handle" category=error`},
		},
		"Warning": {
			Message:  gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityWarning, Types: gpu.DiagnosticTypeGeneral, Message: "odd"},
			Expected: []string{"level=WARNING msg=odd category=warning"},
		},
		"PerformanceWarning": {
			Message: gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityWarning, Types: gpu.DiagnosticTypePerformance, Message: "slow"},
			Expected: []string{
				"level=WARNING msg=slow category=warning",
				"level=WARNING msg=slow category=performance",
			},
		},
		"Info": {
			Message:  gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityInfo, Types: gpu.DiagnosticTypeGeneral, Message: "loaded"},
			Expected: []string{"level=INFO msg=loaded category=info"},
		},
		"Verbose": {
			Message:  gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityVerbose, Types: gpu.DiagnosticTypeGeneral, Message: "chatter"},
			Expected: []string{"level=DEBUG msg=chatter category=debug"},
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			platform, _, buf := readyBridge(t, gputest.Setup{})
			platform.Diagnostics().Emit(testCase.Message)

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, len(testCase.Expected))
			for i, expected := range testCase.Expected {
				require.Contains(t, lines[i], expected)
			}
		})
	}
}

func TestForwardCarriesSource(t *testing.T) {
	platform, _, buf := readyBridge(t, gputest.Setup{})
	platform.Diagnostics().Emit(gpu.DiagnosticMessage{
		Severity: gpu.DiagnosticSeverityError,
		Source:   "VUID-vkDestroyDevice-device-00378",
		Code:     -1,
		Message:  "objects not destroyed",
	})

	require.Contains(t, buf.String(), "source=VUID-vkDestroyDevice-device-00378 code=-1")
}

func TestAttachFilter(t *testing.T) {
	platform, bridge, _ := readyBridge(t, gputest.Setup{})

	require.True(t, bridge.Active())
	require.Equal(t, gpu.DiagnosticSeverityAll, platform.Diagnostics().Filter.Severities)
	require.Equal(t, gpu.DiagnosticTypeAll, platform.Diagnostics().Filter.Types)
}

type panicHandler struct{}

func (panicHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (panicHandler) Handle(context.Context, slog.Record) error { panic("sink exploded") }
func (h panicHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h panicHandler) WithGroup(string) slog.Handler           { return h }

func TestForwardRecoversPanics(t *testing.T) {
	bridge := &Bridge{logger: slog.New(panicHandler{})}

	require.NotPanics(t, func() {
		bridge.forward(gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityError, Message: "boom"})
	})
}

func TestAttachDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	instance := mocks.NewMockInstance(ctrl)

	bridge, err := Attach(logging.Discard(), instance, false)
	require.NoError(t, err)
	require.False(t, bridge.Active())
	bridge.Detach()
}

func TestAttachNoChannel(t *testing.T) {
	platform := gputest.NewPlatform(gputest.Setup{NoDiagnostics: true})
	instance, err := platform.CreateInstance(gpu.InstanceInfo{})
	require.NoError(t, err)

	_, err = Attach(logging.Discard(), instance, true)
	require.True(t, errors.Is(err, gpu.ErrCapabilityMissing))
}

func TestAttachRegistrationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	instance := mocks.NewMockInstance(ctrl)
	channel := mocks.NewMockDiagnosticsChannel(ctrl)

	instance.EXPECT().Diagnostics().Return(channel, true)
	channel.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, errors.New("VK_ERROR_EXTENSION_NOT_PRESENT"))

	_, err := Attach(logging.Discard(), instance, true)
	require.True(t, errors.Is(err, gpu.ErrPlatformAPIFailure))
}

func TestDetachIsIdempotent(t *testing.T) {
	platform, bridge, buf := readyBridge(t, gputest.Setup{})

	bridge.Detach()
	bridge.Detach()
	require.False(t, bridge.Active())
	require.Equal(t, 1, platform.Count("messenger.destroy"))

	platform.Diagnostics().Emit(gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityError, Message: "late"})
	require.NotContains(t, buf.String(), "late")
}

func TestDetachDropsCallbacksInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	instance := mocks.NewMockInstance(ctrl)
	channel := mocks.NewMockDiagnosticsChannel(ctrl)
	messenger := mocks.NewMockMessenger(ctrl)

	var callback gpu.DiagnosticCallback
	instance.EXPECT().Diagnostics().Return(channel, true)
	channel.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(filter gpu.DiagnosticFilter, cb gpu.DiagnosticCallback) (gpu.Messenger, error) {
			callback = cb
			return messenger, nil
		})
	messenger.EXPECT().Destroy().Do(func() {
		callback(gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityWarning, Message: "during destroy"})
	})

	var buf bytes.Buffer
	bridge, err := Attach(logging.New(&buf, logging.LevelTrace), instance, true)
	require.NoError(t, err)

	callback(gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityError, Message: "while attached"})
	require.Contains(t, buf.String(), "while attached")

	bridge.Detach()
	callback(gpu.DiagnosticMessage{Severity: gpu.DiagnosticSeverityError, Message: "after detach"})

	require.NotContains(t, buf.String(), "during destroy")
	require.NotContains(t, buf.String(), "after detach")
	require.False(t, bridge.Active())
}

func TestNames(t *testing.T) {
	requested := []string{"VK_LAYER_KHRONOS_validation"}

	require.Nil(t, InstanceExtensions(false))
	require.Equal(t, []string{DebugUtilsExtension}, InstanceExtensions(true))
	require.Nil(t, Layers(false, requested))
	require.Equal(t, requested, Layers(true, requested))

	require.Equal(t, []string{"VK_LAYER_LUNARG_api_dump"}, MissingLayers(
		[]string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_LUNARG_api_dump"},
		[]string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_KHRONOS_synchronization2"},
	))
}
