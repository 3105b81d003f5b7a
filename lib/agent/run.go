// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
	"unicode"

	"github.com/bureau-foundation/logrelay/lib/clock"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/logview"
)

// MaxMessageSize bounds the message of one captured line. Longer
// lines are truncated. JSON escaping can expand a message several
// times, so this stays well below the collector's line limit.
const MaxMessageSize = 128 * 1024

// drainTimeout is how long Run keeps reading output after the command
// exits. A background child that inherited the pipes would otherwise
// hold Run open indefinitely.
const drainTimeout = 2 * time.Second

// Options configures Run.
type Options struct {
	// Project tags every record. Required.
	Project string

	// Command is the program and its arguments. Required.
	Command []string

	// Dir is the working directory. Empty means the current one.
	Dir string

	// Env is the command's environment. Nil inherits this process's.
	Env []string

	// Stdin is connected to the command's standard input. Nil means
	// the null device.
	Stdin io.Reader

	// Sender receives every record. Required.
	Sender Sender

	// Renderer echoes every record. Nil disables the echo.
	Renderer *logview.Renderer

	// OnStart, if set, is called with the pid once the command has
	// started and before any output is captured.
	OnStart func(pid int)

	// OnRecord, if set, is called with every captured record after it
	// has been handed to Sender. Calls are serialized.
	OnRecord func(record logrecord.Record)

	// WaitDelay bounds how long a cancelled command may take to exit
	// before it is killed. Zero waits for it indefinitely.
	WaitDelay time.Duration

	// ForwardSignals relays SIGINT and SIGTERM received by this
	// process to the command. A second signal kills it.
	ForwardSignals bool

	Clock  clock.Clock
	Logger *slog.Logger
}

// Result describes a finished command.
type Result struct {
	PID int

	// ExitCode is the command's exit status, or 128 plus the signal
	// number when a signal terminated it.
	ExitCode int

	// Lines counts the non-blank lines captured from both streams.
	Lines int
}

// Run starts the command, captures its output until it exits, and
// returns its exit status. A non-zero exit is reported through
// Result, not as an error; errors mean the command could not be
// started or waited for. Cancelling ctx sends SIGTERM to the command.
func Run(ctx context.Context, options Options) (Result, error) {
	if options.Project == "" {
		return Result{}, errors.New("project is required")
	}
	if len(options.Command) == 0 {
		return Result{}, errors.New("command is required")
	}
	if options.Sender == nil {
		return Result{}, errors.New("sender is required")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	stdoutReader, stdoutWriter, err := os.Pipe()
	if err != nil {
		return Result{}, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrReader, stderrWriter, err := os.Pipe()
	if err != nil {
		stdoutReader.Close()
		stdoutWriter.Close()
		return Result{}, fmt.Errorf("creating stderr pipe: %w", err)
	}
	defer stdoutReader.Close()
	defer stderrReader.Close()

	command := exec.CommandContext(ctx, options.Command[0], options.Command[1:]...)
	command.Dir = options.Dir
	command.Env = options.Env
	command.Stdin = options.Stdin
	command.Stdout = stdoutWriter
	command.Stderr = stderrWriter
	command.Cancel = func() error {
		return command.Process.Signal(syscall.SIGTERM)
	}
	command.WaitDelay = options.WaitDelay

	startError := command.Start()
	// The child holds its own copies; ours must close so the readers
	// see EOF when the child exits.
	stdoutWriter.Close()
	stderrWriter.Close()
	if startError != nil {
		return Result{}, fmt.Errorf("starting %s: %w", options.Command[0], startError)
	}

	pid := command.Process.Pid
	logger := options.Logger.With("project", options.Project, "pid", pid)
	logger.Info("process started", "command", strings.Join(options.Command, " "))
	if options.OnStart != nil {
		options.OnStart(pid)
	}

	capture := &capture{
		ctx:     ctx,
		options: &options,
		pid:     pid,
		logger:  logger,
	}
	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		capture.read(stdoutReader, logrecord.SourceStdout)
	}()
	go func() {
		defer readers.Done()
		capture.read(stderrReader, logrecord.SourceStderr)
	}()
	readersDone := make(chan struct{})
	go func() {
		readers.Wait()
		close(readersDone)
	}()

	if options.ForwardSignals {
		signalChannel := make(chan os.Signal, 2)
		signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
		defer func() {
			signal.Stop(signalChannel)
			close(signalChannel)
		}()
		go forwardSignals(signalChannel, command.Process, logger)
	}

	waitError := command.Wait()

	select {
	case <-readersDone:
	case <-options.Clock.After(drainTimeout):
		logger.Warn("output still open after exit, closing")
		stdoutReader.Close()
		stderrReader.Close()
		<-readersDone
	}

	result := Result{PID: pid, Lines: capture.lineCount()}
	if waitError != nil {
		var exitError *exec.ExitError
		if !errors.As(waitError, &exitError) {
			return result, fmt.Errorf("waiting for %s: %w", options.Command[0], waitError)
		}
	}
	result.ExitCode = exitCode(command.ProcessState)
	logger.Info("process exited", "exit_code", result.ExitCode, "lines", result.Lines)
	return result, nil
}

// forwardSignals relays the first signal and kills on the second.
func forwardSignals(signals <-chan os.Signal, process *os.Process, logger *slog.Logger) {
	count := 0
	for received := range signals {
		count++
		if count == 1 {
			logger.Info("forwarding signal", "signal", received.String())
			if err := process.Signal(received); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logger.Warn("forwarding signal", "error", err)
			}
			continue
		}
		logger.Info("received second signal, killing process")
		process.Signal(syscall.SIGKILL)
	}
}

// exitCode follows the shell convention for signal deaths.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return state.ExitCode()
}

// capture turns lines into records. The mutex keeps the echo and the
// send for one line together when both streams are active.
type capture struct {
	ctx     context.Context
	options *Options
	pid     int
	logger  *slog.Logger

	mu    sync.Mutex
	lines int
}

func (c *capture) read(reader io.Reader, source logrecord.Source) {
	err := scanLines(reader, MaxMessageSize, func(line string) {
		c.handle(line, source)
	})
	if err != nil && !errors.Is(err, os.ErrClosed) {
		c.logger.Warn("reading command output", "source", source, "error", err)
	}
}

func (c *capture) handle(line string, source logrecord.Source) {
	message := strings.TrimRightFunc(line, unicode.IsSpace)
	if strings.TrimSpace(message) == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	record, err := logrecord.Capture(c.options.Project, message, source, c.pid, c.options.Clock.Now())
	if err != nil {
		c.logger.Warn("building record", "error", err)
		return
	}
	c.lines++
	if c.options.Renderer != nil {
		if err := c.options.Renderer.Write(record.Data); err != nil {
			c.logger.Debug("echoing record", "error", err)
		}
	}
	// The shipper logs reachability changes itself.
	_ = c.options.Sender.Send(c.ctx, record)
	if c.options.OnRecord != nil {
		c.options.OnRecord(record)
	}
}

func (c *capture) lineCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines
}

// scanLines calls emit for each newline-terminated line of reader and
// for a final unterminated line. Lines longer than limit bytes are
// truncated to limit; the rest of the line is discarded.
func scanLines(reader io.Reader, limit int, emit func(string)) error {
	buffered := bufio.NewReaderSize(reader, 64*1024)
	var line []byte
	for {
		chunk, err := buffered.ReadSlice('\n')
		if room := limit - len(line); len(chunk) > room {
			chunk = chunk[:room]
		}
		line = append(line, chunk...)

		switch {
		case err == nil:
			emit(string(line))
			line = line[:0]
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			if len(line) > 0 {
				emit(string(line))
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
