//go:build nova_debug

package diag

const (
	// Enabled is true in builds tagged nova_debug. Diagnostic layers and the
	// debug utils extension are only requested when it is set.
	Enabled bool = true
)
