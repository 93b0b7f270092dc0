// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package shell

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
	"github.com/sirupsen/logrus"
)

const (
	// Max length of a single output line before the scanner gives up.
	maxOutputLineLength = 512 * 1024
)

// ExecBuilder configures a single external tool invocation. Methods use value
// receivers and return modified copies, so a builder can be reused.
type ExecBuilder struct {
	command          []string
	ctx              context.Context
	stdinString      string
	workingDirectory string
	stdoutLogLevel   logrus.Level
	stderrLogLevel   logrus.Level
	errorStderrLines int
}

func NewExecBuilder(prog string, args ...string) ExecBuilder {
	return ExecBuilder{
		command:        append([]string{prog}, args...),
		stdoutLogLevel: logrus.DebugLevel,
		stderrLogLevel: logrus.DebugLevel,
	}
}

// Context attaches a context; the process is killed when the context is
// canceled.
func (b ExecBuilder) Context(ctx context.Context) ExecBuilder {
	b.ctx = ctx
	return b
}

// Stdin provides a string to feed to the process's stdin.
func (b ExecBuilder) Stdin(value string) ExecBuilder {
	b.stdinString = value
	return b
}

// WorkingDirectory sets the process's working directory.
func (b ExecBuilder) WorkingDirectory(path string) ExecBuilder {
	b.workingDirectory = path
	return b
}

// LogLevel overrides the log levels used for the process's stdout and stderr
// streams. Use LogDisabledLevel to silence a stream.
func (b ExecBuilder) LogLevel(stdoutLogLevel logrus.Level, stderrLogLevel logrus.Level) ExecBuilder {
	b.stdoutLogLevel = stdoutLogLevel
	b.stderrLogLevel = stderrLogLevel
	return b
}

// ErrorStderrLines sets how many trailing stderr lines are included in the
// error when the process fails.
func (b ExecBuilder) ErrorStderrLines(lines int) ExecBuilder {
	b.errorStderrLines = lines
	return b
}

// Execute runs the command, streaming its output into the log.
func (b ExecBuilder) Execute() error {
	_, _, err := b.execute(false)
	return err
}

// ExecuteCaptureOutput runs the command and returns its full stdout and
// stderr instead of streaming them.
func (b ExecBuilder) ExecuteCaptureOutput() (string, string, error) {
	return b.execute(true)
}

func (b ExecBuilder) execute(captureOutput bool) (string, string, error) {
	logger.Log.Debugf("Executing: %s", strings.Join(b.command, " "))

	var cmd *exec.Cmd
	if b.ctx != nil {
		cmd = exec.CommandContext(b.ctx, b.command[0], b.command[1:]...)
	} else {
		cmd = exec.Command(b.command[0], b.command[1:]...)
	}

	cmd.Dir = b.workingDirectory

	if b.stdinString != "" {
		cmd.Stdin = strings.NewReader(b.stdinString)
	}

	stdoutBuffer := &bytes.Buffer{}
	stderrBuffer := &bytes.Buffer{}
	stderrTail := newTailBuffer(b.errorStderrLines)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", "", fmt.Errorf("failed to create stdout pipe:\n%w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", "", fmt.Errorf("failed to create stderr pipe:\n%w", err)
	}

	err = cmd.Start()
	if err != nil {
		return "", "", fmt.Errorf("failed to start command (%s):\n%w", b.command[0], err)
	}

	wg := sync.WaitGroup{}
	wg.Add(2)

	var stdoutReadErr error
	var stderrReadErr error

	go func() {
		defer wg.Done()
		stdoutReadErr = b.consumeStream(stdoutPipe, b.stdoutLogLevel, captureOutput, stdoutBuffer, nil)
	}()

	go func() {
		defer wg.Done()
		stderrReadErr = b.consumeStream(stderrPipe, b.stderrLogLevel, captureOutput, stderrBuffer, stderrTail)
	}()

	wg.Wait()

	err = cmd.Wait()
	if err != nil {
		tailLines := stderrTail.Lines()
		if len(tailLines) > 0 {
			return stdoutBuffer.String(), stderrBuffer.String(),
				fmt.Errorf("%s\ncommand (%s) failed:\n%w", strings.Join(tailLines, "\n"), b.command[0], err)
		}

		return stdoutBuffer.String(), stderrBuffer.String(),
			fmt.Errorf("command (%s) failed:\n%w", b.command[0], err)
	}

	if stdoutReadErr != nil {
		return stdoutBuffer.String(), stderrBuffer.String(),
			fmt.Errorf("failed to read stdout of command (%s):\n%w", b.command[0], stdoutReadErr)
	}
	if stderrReadErr != nil {
		return stdoutBuffer.String(), stderrBuffer.String(),
			fmt.Errorf("failed to read stderr of command (%s):\n%w", b.command[0], stderrReadErr)
	}

	return stdoutBuffer.String(), stderrBuffer.String(), nil
}

func (b ExecBuilder) consumeStream(stream io.Reader, logLevel logrus.Level, captureOutput bool,
	captureBuffer *bytes.Buffer, tail *tailBuffer,
) error {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxOutputLineLength)

	for scanner.Scan() {
		line := scanner.Text()

		if captureOutput {
			captureBuffer.WriteString(line)
			captureBuffer.WriteString("\n")
		}

		if logLevel != LogDisabledLevel {
			logger.Log.Log(logLevel, line)
		}

		if tail != nil {
			tail.Add(line)
		}
	}

	err := scanner.Err()
	if err != nil {
		// Keep draining so the process is not left blocked on a full pipe.
		io.Copy(io.Discard, stream)
		return err
	}

	return nil
}

// tailBuffer keeps the last N lines written to it.
type tailBuffer struct {
	lock     sync.Mutex
	maxLines int
	lines    []string
}

func newTailBuffer(maxLines int) *tailBuffer {
	return &tailBuffer{
		maxLines: maxLines,
	}
}

func (t *tailBuffer) Add(line string) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.maxLines <= 0 {
		return
	}

	t.lines = append(t.lines, line)
	if len(t.lines) > t.maxLines {
		t.lines = t.lines[len(t.lines)-t.maxLines:]
	}
}

func (t *tailBuffer) Lines() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.lines
}
