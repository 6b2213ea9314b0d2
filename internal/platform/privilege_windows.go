//go:build windows

package platform

import "golang.org/x/sys/windows"

// IsAdmin reports whether the process token is elevated. If the token
// cannot be inspected the process is treated as unprivileged.
func IsAdmin() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
