//go:build !(linux || darwin || freebsd)

package transport

import "syscall"

// reuseControl is a no-op where SO_REUSEPORT is not available; only one
// node per host can bind the group port.
func reuseControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
