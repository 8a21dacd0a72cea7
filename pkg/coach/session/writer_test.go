package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordedWrite struct {
	messageType int
	data        string
}

type fakeWSWriter struct {
	mu     sync.Mutex
	writes []recordedWrite
	closed bool
}

func (f *fakeWSWriter) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeWSWriter) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, recordedWrite{messageType: messageType, data: string(data)})
	return nil
}

func (f *fakeWSWriter) WriteControl(messageType int, data []byte, deadline time.Time) error {
	_ = deadline
	return f.WriteMessage(messageType, data)
}

func (f *fakeWSWriter) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeWSWriter) snapshot() []recordedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

func TestOutboundWriter_PriorityBeatsNormal(t *testing.T) {
	priority := make(chan outboundFrame, 1)
	normal := make(chan outboundFrame, 1)

	normal <- outboundFrame{payload: []byte(`{"data":2,"audio_data":""}`)}
	priority <- outboundFrame{payload: []byte(`{"type":"warning","code":"draining","message":"bye"}`)}
	close(priority)
	close(normal)

	ws := &fakeWSWriter{}
	w := outboundWriter{
		ws:       ws,
		ctx:      context.Background(),
		cfg:      Config{PingInterval: time.Hour, WriteTimeout: time.Second},
		priority: priority,
		normal:   normal,
	}
	if err := w.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	writes := ws.snapshot()
	if len(writes) != 2 {
		t.Fatalf("writes=%d, want 2", len(writes))
	}
	if !strings.Contains(writes[0].data, `"type":"warning"`) {
		t.Fatalf("first write=%q, want warning", writes[0].data)
	}
	if writes[1].messageType != websocket.TextMessage {
		t.Fatalf("second write type=%d", writes[1].messageType)
	}
}

func TestOutboundWriter_FlushesQueuedFramesBeforeClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	normal := make(chan outboundFrame, 2)
	normal <- outboundFrame{payload: []byte(`{"data":5,"audio_data":""}`)}
	cancel()

	ws := &fakeWSWriter{}
	w := outboundWriter{
		ws:       ws,
		ctx:      ctx,
		cfg:      Config{PingInterval: time.Hour, WriteTimeout: time.Second},
		priority: make(chan outboundFrame),
		normal:   normal,
	}
	if err := w.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	writes := ws.snapshot()
	if len(writes) != 2 {
		t.Fatalf("writes=%v, want data frame then close", writes)
	}
	if writes[0].data != `{"data":5,"audio_data":""}` {
		t.Fatalf("first write=%q", writes[0].data)
	}
	if writes[1].messageType != websocket.CloseMessage {
		t.Fatalf("last write type=%d, want close", writes[1].messageType)
	}
	if !ws.closed {
		t.Fatal("expected socket to be closed")
	}
}

func TestOutboundWriter_SendsPings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := &fakeWSWriter{}
	w := outboundWriter{
		ws:       ws,
		ctx:      ctx,
		cfg:      Config{PingInterval: 10 * time.Millisecond, WriteTimeout: time.Second},
		priority: make(chan outboundFrame),
		normal:   make(chan outboundFrame),
	}
	done := make(chan error, 1)
	go func() { done <- w.Run() }()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, wr := range ws.snapshot() {
			if wr.messageType == websocket.PingMessage {
				cancel()
				<-done
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected a ping within a second")
}
