//go:build unix

package platform

import "golang.org/x/sys/unix"

// IsAdmin reports whether the process runs with an effective uid of root
func IsAdmin() bool {
	return unix.Geteuid() == 0
}
