// Package proctitle names the running process so operators can tell the
// server apart from the count tool in ps and top.
package proctitle

import (
	"os"
	"strings"
)

// maxComm is the kernel's comm limit without the trailing NUL.
const maxComm = 15

func clean(title string) string {
	title = strings.TrimSpace(title)
	if len(title) > maxComm {
		title = title[:maxComm]
	}
	return title
}

func setArgv0(title string) {
	if len(os.Args) > 0 {
		os.Args[0] = title
	}
}
