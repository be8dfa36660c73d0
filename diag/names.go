package diag

import "golang.org/x/exp/slices"

// DebugUtilsExtension is the instance extension that carries driver diagnostics
const DebugUtilsExtension = "VK_EXT_debug_utils"

// InstanceExtensions returns the instance extensions the bridge needs
func InstanceExtensions(enabled bool) []string {
	if !enabled {
		return nil
	}
	return []string{DebugUtilsExtension}
}

// Layers returns the diagnostic layers to enable on the instance and device. Nothing
// is requested when diagnostics are disabled.
func Layers(enabled bool, requested []string) []string {
	if !enabled {
		return nil
	}
	return slices.Clone(requested)
}

// MissingLayers returns the entries of requested that are absent from available,
// in request order
func MissingLayers(requested, available []string) []string {
	var missing []string
	for _, layer := range requested {
		if !slices.Contains(available, layer) {
			missing = append(missing, layer)
		}
	}
	return missing
}
