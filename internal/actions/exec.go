package actions

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ExecRunner 默认的外部命令执行器。
// ExecRunner is the default external command runner.
func ExecRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("%s: %w", name, err)
	}
	return out.String(), nil
}

// Shell 带超时与输出截断的 shell 执行器。安全检查由调用方负责。
// Shell runs shell commands with a timeout and output truncation. The safety
// check is the caller's responsibility.
type Shell struct {
	timeout     time.Duration
	outputLimit int
}

func NewShell(timeout time.Duration, outputLimit int) *Shell {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if outputLimit <= 0 {
		outputLimit = 64 * 1024
	}
	return &Shell{timeout: timeout, outputLimit: outputLimit}
}

func (s *Shell) Run(ctx context.Context, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()

	text := out.String()
	if len(text) > s.outputLimit {
		text = text[:s.outputLimit] + "\n... (output truncated)"
	}
	if ctx.Err() == context.DeadlineExceeded {
		return text, fmt.Errorf("command timed out after %s", s.timeout)
	}
	if err != nil {
		return text, fmt.Errorf("command failed: %w", err)
	}
	return strings.TrimRight(text, "\n"), nil
}
