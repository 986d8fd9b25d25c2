package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"streamcast/internal/core/domain"
	"streamcast/internal/core/ports"

	"go.uber.org/zap"
)

const terminateGrace = 5 * time.Second

// Runner launches ffmpeg processes and supervises their exit. Encoder
// output is folded line by line into the structured log.
type Runner struct {
	binary string
	logger *zap.SugaredLogger
}

// NewRunner builds a process runner. An empty binary uses the command's
// own binary name resolved via PATH.
func NewRunner(binary string, logger *zap.SugaredLogger) ports.ProcessRunner {
	return &Runner{binary: binary, logger: logger}
}

type process struct {
	pid    int
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *process) ID() int { return p.pid }

func (r *Runner) Launch(ctx context.Context, command domain.EncoderCommand) (domain.EncoderProcess, error) {
	binary := command.Binary
	if r.binary != "" {
		binary = r.binary
	}

	// The encoder must outlive the request that launched it; cancellation
	// is owned by Terminate, not by the caller's context.
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, binary, command.Args...)
	cmd.Stdout = newLineWriter(r.logger, "stdout")
	cmd.Stderr = newLineWriter(r.logger, "stderr")

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &domain.ProcessLaunchError{Err: err}
	}

	proc := &process{pid: cmd.Process.Pid, cmd: cmd, cancel: cancel, done: make(chan struct{})}
	r.logger.Infow("encoder started", "pid", proc.pid, "binary", binary)

	go func() {
		err := cmd.Wait()
		if err != nil {
			r.logger.Warnw("encoder exited with error", "pid", proc.pid, "error", err)
		} else {
			r.logger.Infow("encoder exited", "pid", proc.pid)
		}
		cancel()
		close(proc.done)
	}()

	return proc, nil
}

// Terminate asks the encoder to exit with SIGTERM and kills it if it
// does not stop within the grace period.
func (r *Runner) Terminate(handle domain.EncoderProcess) error {
	proc, ok := handle.(*process)
	if !ok {
		return fmt.Errorf("unexpected process handle %T", handle)
	}

	select {
	case <-proc.done:
		return nil
	default:
	}

	if err := proc.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		proc.cancel()
		return fmt.Errorf("signal encoder %d: %w", proc.pid, err)
	}

	select {
	case <-proc.done:
	case <-time.After(terminateGrace):
		r.logger.Warnw("encoder ignored SIGTERM, killing", "pid", proc.pid)
		proc.cancel()
		<-proc.done
	}
	return nil
}

type lineWriter struct {
	logger *zap.SugaredLogger
	stream string
}

func newLineWriter(logger *zap.SugaredLogger, stream string) *lineWriter {
	return &lineWriter{logger: logger, stream: stream}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		idx := bytes.IndexByte(p, '\n')
		var line []byte
		if idx == -1 {
			line = p
			p = nil
		} else {
			line = p[:idx]
			p = p[idx+1:]
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		w.logger.Debugw(string(line), "stream", w.stream)
	}
	return total, nil
}
