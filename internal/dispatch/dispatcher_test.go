package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/Suwot/max-video-downloader-sub001/internal/ipc"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []map[string]any
}

func (s *recordingSink) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, v.(map[string]any))
	return nil
}

func (s *recordingSink) last(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no reply sent")
	}
	return s.sent[len(s.sent)-1]
}

func mustMessage(t *testing.T, raw string) *ipc.Message {
	t.Helper()
	m, err := ipc.DecodeMessage([]byte(raw))
	if err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return m
}

func TestDispatch_RoutesAndEchoesID(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, nil)
	d.Register("ping", func(_ context.Context, req *Request) {
		req.Respond(map[string]any{"status": "pong"})
	})

	d.Dispatch(context.Background(), mustMessage(t, `{"command":"ping","id":42}`))

	reply := sink.last(t)
	if reply["status"] != "pong" {
		t.Fatalf("reply = %v", reply)
	}
	if reply["command"] != "ping-response" {
		t.Fatalf("command = %v", reply["command"])
	}
	id, ok := reply["id"].(json.RawMessage)
	if !ok || string(id) != "42" {
		t.Fatalf("id = %v", reply["id"])
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, nil)

	d.Dispatch(context.Background(), mustMessage(t, `{"command":"nope","id":1}`))

	reply := sink.last(t)
	if reply["error"] == nil || reply["error"] == "" {
		t.Fatalf("reply = %v", reply)
	}
}

func TestDispatch_RecoversPanickingHandler(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, nil)
	d.Register("bad", func(_ context.Context, _ *Request) {
		panic("handler bug")
	})

	d.Dispatch(context.Background(), mustMessage(t, `{"command":"bad","id":9}`))

	reply := sink.last(t)
	if reply["error"] != "internal error" {
		t.Fatalf("reply = %v", reply)
	}
}

func TestRequest_RespondWithoutID(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, nil)
	d.Register("fire", func(_ context.Context, req *Request) {
		req.Respond(map[string]any{"status": "ok"})
	})

	d.Dispatch(context.Background(), mustMessage(t, `{"command":"fire"}`))

	reply := sink.last(t)
	if _, ok := reply["id"]; ok {
		t.Fatal("id must not be invented for id-less messages")
	}
}

func TestRequest_CustomResponseCommand(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, nil)
	d.Register("download", func(_ context.Context, req *Request) {
		req.Respond(map[string]any{"command": "download-started", "status": "started"})
	})

	d.Dispatch(context.Background(), mustMessage(t, `{"command":"download","id":3}`))

	if reply := sink.last(t); reply["command"] != "download-started" {
		t.Fatalf("command = %v", reply["command"])
	}
}
