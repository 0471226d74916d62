package rembg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

// CommandRemover 以子进程方式调用抠图程序，PNG 走 stdin/stdout
type CommandRemover struct {
	path string
	args []string
}

func NewCommandRemover(path string, args ...string) *CommandRemover {
	return &CommandRemover{path: path, args: args}
}

// RembgArgs `rembg i -m <model> - -` 的参数
func RembgArgs(model string) []string {
	return []string{"i", "-m", model, "-", "-"}
}

func (c *CommandRemover) Remove(ctx context.Context, in []byte) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("run %s: %w: %s", c.path, err, msg)
		}
		return nil, fmt.Errorf("run %s: %w", c.path, err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("run %s: empty output", c.path)
	}

	return stdout.Bytes(), nil
}
