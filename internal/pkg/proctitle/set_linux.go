//go:build linux

package proctitle

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Set renames the process via PR_SET_NAME. Titles are cut to the comm limit.
func Set(title string) error {
	title = clean(title)
	if title == "" {
		return errors.New("proctitle: empty title")
	}
	setArgv0(title)

	name := make([]byte, maxComm+1)
	copy(name, title)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&name[0])), 0, 0, 0)
}
