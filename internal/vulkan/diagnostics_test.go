package vulkan

import (
	"testing"

	"github.com/coler706/nova-renderer/gpu"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
)

func TestConvertMessage(t *testing.T) {
	msg := convertMessage(
		ext_debug_utils.TypeValidation|ext_debug_utils.TypePerformance,
		ext_debug_utils.SeverityWarning,
		&ext_debug_utils.DebugUtilsMessengerCallbackData{
			MessageIDName:   "UNASSIGNED-BestPractices-vkAllocateMemory-small-allocation",
			MessageIDNumber: 0x2cd7f3,
			Message:         "allocate larger blocks",
		},
	)

	require.Equal(t, gpu.DiagnosticSeverityWarning, msg.Severity)
	require.Equal(t, gpu.DiagnosticTypeValidation|gpu.DiagnosticTypePerformance, msg.Types)
	require.Equal(t, "UNASSIGNED-BestPractices-vkAllocateMemory-small-allocation", msg.Source)
	require.Equal(t, int32(0x2cd7f3), msg.Code)
	require.Equal(t, "allocate larger blocks", msg.Message)
}

func TestConvertMessageWithoutData(t *testing.T) {
	msg := convertMessage(ext_debug_utils.TypeGeneral, ext_debug_utils.SeverityError|ext_debug_utils.SeverityInfo, nil)

	require.Equal(t, gpu.DiagnosticSeverityError|gpu.DiagnosticSeverityInfo, msg.Severity)
	require.Equal(t, gpu.DiagnosticTypeGeneral, msg.Types)
	require.Empty(t, msg.Message)
}

func TestVersionRoundTrip(t *testing.T) {
	version := gpu.Version{Major: 1, Minor: 3, Patch: 250}
	require.Equal(t, version, fromVersion(toVersion(version)))
}
