//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package extractor

import "os/exec"

func killProcessGroup(cmd *exec.Cmd) {}
