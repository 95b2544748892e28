// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

// Set makes cmd the leader of a fresh process group once started.
func Set(cmd *exec.Cmd) {
	attr := cmd.SysProcAttr
	if attr == nil {
		attr = new(syscall.SysProcAttr)
		cmd.SysProcAttr = attr
	}
	attr.Setpgid = true
}

// Kill delivers sig to every process in cmd's group. A missing command or
// an already reaped group is not an error.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err == nil {
		err = syscall.Kill(-pgid, sig)
	}
	switch {
	case err == nil, errors.Is(err, syscall.ESRCH):
		return nil
	default:
		return killError(pid, sig, err)
	}
}
