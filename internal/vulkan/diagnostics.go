package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
)

var severityMapping = []struct {
	gpu    gpu.DiagnosticSeverity
	native ext_debug_utils.DebugUtilsMessageSeverityFlags
}{
	{gpu.DiagnosticSeverityVerbose, ext_debug_utils.SeverityVerbose},
	{gpu.DiagnosticSeverityInfo, ext_debug_utils.SeverityInfo},
	{gpu.DiagnosticSeverityWarning, ext_debug_utils.SeverityWarning},
	{gpu.DiagnosticSeverityError, ext_debug_utils.SeverityError},
}

var typeMapping = []struct {
	gpu    gpu.DiagnosticType
	native ext_debug_utils.DebugUtilsMessageTypeFlags
}{
	{gpu.DiagnosticTypeGeneral, ext_debug_utils.TypeGeneral},
	{gpu.DiagnosticTypeValidation, ext_debug_utils.TypeValidation},
	{gpu.DiagnosticTypePerformance, ext_debug_utils.TypePerformance},
}

// DiagnosticsChannel registers debug utils messengers on an instance
type DiagnosticsChannel struct {
	instance  core1_0.Instance
	extension *ext_debug_utils.VulkanExtension
}

var _ gpu.DiagnosticsChannel = &DiagnosticsChannel{}

func (c *DiagnosticsChannel) Register(filter gpu.DiagnosticFilter, callback gpu.DiagnosticCallback) (gpu.Messenger, error) {
	var severities ext_debug_utils.DebugUtilsMessageSeverityFlags
	for _, mapping := range severityMapping {
		if filter.Severities&mapping.gpu != 0 {
			severities |= mapping.native
		}
	}

	var types ext_debug_utils.DebugUtilsMessageTypeFlags
	for _, mapping := range typeMapping {
		if filter.Types&mapping.gpu != 0 {
			types |= mapping.native
		}
	}

	messenger, _, err := c.extension.CreateDebugUtilsMessenger(c.instance, nil, ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: severities,
		MessageType:     types,
		UserCallback: func(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
			callback(convertMessage(msgType, severity, data))
			return false
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateDebugUtilsMessengerEXT")
	}
	return &Messenger{messenger: messenger}, nil
}

func convertMessage(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) gpu.DiagnosticMessage {
	var msg gpu.DiagnosticMessage
	for _, mapping := range severityMapping {
		if severity&mapping.native != 0 {
			msg.Severity |= mapping.gpu
		}
	}
	for _, mapping := range typeMapping {
		if msgType&mapping.native != 0 {
			msg.Types |= mapping.gpu
		}
	}

	if data != nil {
		msg.Source = data.MessageIDName
		msg.Code = int32(data.MessageIDNumber)
		msg.Message = data.Message
	}
	return msg
}

type Messenger struct {
	messenger ext_debug_utils.DebugUtilsMessenger
}

func (m *Messenger) Destroy() {
	m.messenger.Destroy(nil)
}
