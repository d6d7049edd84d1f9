package dispatch

import (
	"context"
	"testing"

	"github.com/Suwot/max-video-downloader-sub001/internal/ffmpeg"
)

func TestRegisterCore_SimpleCommands(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, nil)

	var shutdowns, touches int
	RegisterCore(d, Deps{
		Binaries: ffmpeg.Binaries{FFmpeg: "/usr/bin/ffmpeg"},
		Version:  "1.2.3",
		Shutdown: func() { shutdowns++ },
		Touch:    func() { touches++ },
	})
	ctx := context.Background()

	d.Dispatch(ctx, mustMessage(t, `{"command":"heartbeat","id":1}`))
	reply := sink.last(t)
	if reply["status"] != "alive" || reply["ts"] == nil {
		t.Fatalf("heartbeat reply = %v", reply)
	}
	if touches != 1 {
		t.Fatalf("touches = %d", touches)
	}

	d.Dispatch(ctx, mustMessage(t, `{"command":"get-config","id":2}`))
	reply = sink.last(t)
	if reply["version"] != "1.2.3" || reply["ffmpeg"] != "/usr/bin/ffmpeg" || reply["available"] != true {
		t.Fatalf("get-config reply = %v", reply)
	}

	d.Dispatch(ctx, mustMessage(t, `{"command":"list-history","id":3}`))
	reply = sink.last(t)
	if reply["error"] != "history unavailable" {
		t.Fatalf("list-history reply = %v", reply)
	}

	d.Dispatch(ctx, mustMessage(t, `{"command":"quit","id":4}`))
	reply = sink.last(t)
	if reply["status"] != "bye" {
		t.Fatalf("quit reply = %v", reply)
	}
	if shutdowns != 1 {
		t.Fatalf("shutdowns = %d", shutdowns)
	}
}
