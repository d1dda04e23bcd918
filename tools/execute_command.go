package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const (
	defaultCommandTimeout = 10  // seconds
	defaultMaxTimeout     = 600 // cap on model-requested overrides
	maxCommandOutput      = 30_000
)

type executeCommandInput struct {
	Command string `json:"command" jsonschema_description:"The shell command to execute."`
	Timeout int    `json:"timeout,omitempty" jsonschema_description:"Timeout override in seconds."`
}

// ExecuteCommand runs a shell command under a bounded execution policy: a
// timeout, an output-size cap, and guaranteed termination of the child
// process group on every exit path.
type ExecuteCommand struct {
	root       string
	timeout    time.Duration
	maxTimeout time.Duration
}

// NewExecuteCommand creates the execute_command tool. timeoutSec and
// maxTimeoutSec fall back to package defaults when zero.
func NewExecuteCommand(root string, timeoutSec, maxTimeoutSec int) *ExecuteCommand {
	if timeoutSec <= 0 {
		timeoutSec = defaultCommandTimeout
	}
	if maxTimeoutSec <= 0 {
		maxTimeoutSec = defaultMaxTimeout
	}
	return &ExecuteCommand{
		root:       root,
		timeout:    time.Duration(timeoutSec) * time.Second,
		maxTimeout: time.Duration(maxTimeoutSec) * time.Second,
	}
}

func (t *ExecuteCommand) Name() string { return "execute_command" }

func (t *ExecuteCommand) Description() string {
	return "Execute a shell command in the working directory and return its output."
}

func (t *ExecuteCommand) Schema() map[string]any { return GenerateSchema[executeCommandInput]() }

func (t *ExecuteCommand) RequiresApproval() bool { return true }

func (t *ExecuteCommand) ApprovalPrompt(args json.RawMessage) string {
	var in executeCommandInput
	_ = json.Unmarshal(args, &in)
	return fmt.Sprintf("Execute command: %s", in.Command)
}

func (t *ExecuteCommand) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var in executeCommandInput
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Command) == "" {
		return "", fmt.Errorf("command is required")
	}

	timeout := t.timeout
	if in.Timeout > 0 {
		timeout = time.Duration(in.Timeout) * time.Second
		if timeout > t.maxTimeout {
			timeout = t.maxTimeout
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/bash", "-c", in.Command)
	if t.root != "" {
		cmd.Dir = t.root
	}
	// Own process group so the whole tree can be killed on timeout or
	// cancel; no child may outlive this call.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := combineOutput(stdout.String(), stderr.String())
	if len(output) > maxCommandOutput {
		output = output[:maxCommandOutput] + "\n[output capped]"
	}

	if ctx.Err() == context.DeadlineExceeded {
		if output != "" {
			return "", fmt.Errorf("command timed out after %s; partial output:\n%s", timeout, output)
		}
		return "", fmt.Errorf("command timed out after %s", timeout)
	}
	if ctx.Err() == context.Canceled {
		return "", fmt.Errorf("command cancelled")
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("command exited with code %d:\n%s", exitErr.ExitCode(), output)
		}
		return "", fmt.Errorf("run command: %w", err)
	}

	if output == "" {
		return "Command completed with no output", nil
	}
	return output, nil
}

func combineOutput(stdout, stderr string) string {
	stdout = strings.TrimRight(stdout, "\n")
	stderr = strings.TrimRight(stderr, "\n")
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	default:
		return stdout + "\n" + stderr
	}
}
