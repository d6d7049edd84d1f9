// Package dispatch routes inbound messages to command handlers. A handler
// failure, panic included, becomes an error reply; it never takes the host
// process down.
package dispatch

import (
	"context"

	"github.com/Suwot/max-video-downloader-sub001/internal/ipc"
	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// Sink is where replies and events are written, normally the message
// channel.
type Sink interface {
	Send(v any) error
}

// Handler processes one inbound message.
type Handler func(ctx context.Context, req *Request)

// Request wraps one dispatched message with a response sink already bound
// to the request's correlation id, so handlers never thread the id
// themselves. Events a handler emits independently go through the shared
// sink without any id.
type Request struct {
	msg  *ipc.Message
	sink Sink
}

// Decode unmarshals the message payload into v.
func (r *Request) Decode(v any) error { return r.msg.Decode(v) }

// Command returns the inbound command name.
func (r *Request) Command() string { return r.msg.Command }

// Respond sends the single correlated response for this request. The
// inbound id, when present, is echoed verbatim.
func (r *Request) Respond(fields map[string]any) {
	out := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	if _, ok := out["command"]; !ok {
		out["command"] = r.msg.Command + "-response"
	}
	if r.msg.HasID() {
		out["id"] = r.msg.ID
	}
	_ = r.sink.Send(out)
}

// RespondError sends an error reply for this request.
func (r *Request) RespondError(err error) {
	r.Respond(map[string]any{"error": err.Error()})
}

// Dispatcher routes by command name.
type Dispatcher struct {
	handlers map[string]Handler
	sink     Sink
	log      types.Logger
}

func New(sink Sink, log types.Logger) *Dispatcher {
	if log == nil {
		log = types.NopLogger{}
	}
	return &Dispatcher{
		handlers: make(map[string]Handler),
		sink:     sink,
		log:      log,
	}
}

// Register binds a handler to a command name. Later registrations replace
// earlier ones.
func (d *Dispatcher) Register(command string, h Handler) {
	d.handlers[command] = h
}

// Dispatch routes one message. Unknown commands get an error reply using
// the inbound id if present. A panicking handler is recovered and reported
// the same way.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *ipc.Message) {
	req := &Request{msg: msg, sink: d.sink}

	h, ok := d.handlers[msg.Command]
	if !ok {
		d.log.Warnf("dispatch: %v: %q", types.ErrUnknownCommand, msg.Command)
		req.RespondError(types.ErrUnknownCommand)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			d.log.Errorf("dispatch: handler for %q panicked: %v", msg.Command, rec)
			req.Respond(map[string]any{"error": "internal error"})
		}
	}()
	h(ctx, req)
}
