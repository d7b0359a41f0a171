//go:build !linux

package proctitle

import "errors"

// Set only rewrites os.Args[0] outside Linux.
func Set(title string) error {
	title = clean(title)
	if title == "" {
		return errors.New("proctitle: empty title")
	}
	setArgv0(title)
	return nil
}
