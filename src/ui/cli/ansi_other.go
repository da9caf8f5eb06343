//go:build !windows

package cli

// EnableANSI is a no-op, terminals understand escape sequences.
func EnableANSI() {}
