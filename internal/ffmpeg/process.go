package ffmpeg

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// Process supervises one running transcoder. Its lifecycle is managed
// explicitly (quit directive, terminate, forced kill) rather than through
// context cancellation, because cancellation here is graceful-then-forced
// with an in-between grace window.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr io.ReadCloser

	waitOnce sync.Once
	waitErr  error
}

// Start spawns the transcoder. The caller must drain Stderr to EOF and then
// call Wait exactly once.
func Start(bin string, args []string) (*Process, error) {
	cmd := exec.Command(bin, args...)
	cmd.Stdout = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Process{cmd: cmd, stdin: stdin, stderr: stderr}, nil
}

// Stderr is the transcoder's status stream, the only channel progress
// estimation consumes.
func (p *Process) Stderr() io.Reader { return p.stderr }

// Quit asks the transcoder to stop gracefully by writing its quit directive
// to stdin.
func (p *Process) Quit() error {
	_, err := io.WriteString(p.stdin, "q\n")
	return err
}

// Terminate sends the termination signal.
func (p *Process) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

// Kill forcibly ends the process. Safe to call after exit.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// Wait blocks until the process exits and returns its wait error. Safe to
// call more than once; later calls return the first result.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// ExitStatus decodes a wait error into an exit code and, when the process
// died from a signal, the signal name. A nil error is exit 0.
func ExitStatus(err error) (code int, signal string) {
	if err == nil {
		return 0, ""
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return -1, ws.Signal().String()
		}
		return ee.ExitCode(), ""
	}
	return -1, ""
}
