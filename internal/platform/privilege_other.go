//go:build !unix && !windows

package platform

// IsAdmin always reports false where privileges cannot be probed
func IsAdmin() bool {
	return false
}
