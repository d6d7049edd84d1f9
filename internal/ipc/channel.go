package ipc

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// Channel frames JSON messages over a byte pipe, normally the process's
// stdin/stdout pair. All outbound writes are serialized so frames from
// concurrent sessions never interleave.
type Channel struct {
	r   io.Reader
	w   io.Writer
	log types.Logger

	mu          sync.Mutex
	broken      atomic.Bool
	lastInbound atomic.Int64

	exit     func()
	exitOnce sync.Once
}

// New returns a channel over r/w. exit is invoked (once, shortly deferred)
// when the peer is detected gone: broken pipe on write, or watchdog expiry.
func New(r io.Reader, w io.Writer, log types.Logger, exit func()) *Channel {
	if log == nil {
		log = types.NopLogger{}
	}
	if exit == nil {
		exit = func() {}
	}
	c := &Channel{r: r, w: w, log: log, exit: exit}
	c.lastInbound.Store(time.Now().UnixNano())
	return c
}

// Send marshals v and writes it as one frame under the write lock. Once the
// peer has closed its read end, further sends are suppressed rather than
// retried, and an orderly exit is scheduled.
func (c *Channel) Send(v any) error {
	if c.broken.Load() {
		return types.ErrChannelClosed
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	frame := EncodeFrame(payload)

	c.mu.Lock()
	_, err = c.w.Write(frame)
	c.mu.Unlock()

	if err != nil {
		if isBrokenPipe(err) {
			c.peerGone("write to closed pipe")
			return types.ErrChannelClosed
		}
		return err
	}
	return nil
}

// Run reads frames until the stream ends, calling handle for each decoded
// message. A frame whose payload fails to decode produces one diagnostic
// event and reading continues; only stream-level corruption or EOF stops
// the loop.
func (c *Channel) Run(handle func(*Message)) error {
	for {
		payload, err := ReadFrame(c.r)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				c.peerGone("stdin closed")
				return nil
			}
			var perr *ProtocolError
			if errors.As(err, &perr) {
				// Length-prefix corruption: framing alignment is lost,
				// there is nothing left to salvage from this stream.
				c.log.Errorf("ipc: %v", perr)
				c.peerGone(perr.Reason)
				return perr
			}
			return err
		}
		c.lastInbound.Store(time.Now().UnixNano())

		msg, err := DecodeMessage(payload)
		if err != nil {
			c.log.Warnf("ipc: dropping malformed frame: %v", err)
			_ = c.Send(map[string]any{
				"command": "error",
				"error":   "malformed message",
			})
			continue
		}
		handle(msg)
	}
}

// LastInbound returns the arrival time of the most recent inbound message.
func (c *Channel) LastInbound() time.Time {
	return time.Unix(0, c.lastInbound.Load())
}

// StartWatchdog exits the process when no inbound message, heartbeats
// included, has arrived within window. Returns a stop function.
func (c *Channel) StartWatchdog(window, poll time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if time.Since(c.LastInbound()) > window {
					c.peerGone("no heartbeat")
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (c *Channel) peerGone(reason string) {
	if c.broken.CompareAndSwap(false, true) {
		c.log.Warnf("ipc: peer gone (%s), scheduling exit", reason)
	}
	c.exitOnce.Do(func() {
		time.AfterFunc(200*time.Millisecond, c.exit)
	})
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, os.ErrClosed)
}
