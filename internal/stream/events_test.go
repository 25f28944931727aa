package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/satindergrewal/singalong/internal/highlight"
)

// --- EventsHandler ---

func readEvents(t *testing.T, ctx context.Context, conn *websocket.Conn) []highlight.Event {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v, want text", typ)
	}
	var events []highlight.Event
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("Unmarshal %s: %v", data, err)
	}
	return events
}

func TestEventsHandlerSnapshotThenBatches(t *testing.T) {
	b := NewBroadcaster[[]highlight.Event](8)
	snapshot := func() []highlight.Event {
		return []highlight.Event{{Type: highlight.EventScreen, ScreenIndex: 2, Lines: []string{"Hello world"}}}
	}
	srv := httptest.NewServer(NewEventsHandler(b, snapshot))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	source := make(chan []highlight.Event, 1)
	go b.Run(ctx, source)

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	got := readEvents(t, ctx, conn)
	if len(got) != 1 || got[0].Type != highlight.EventScreen || got[0].ScreenIndex != 2 {
		t.Fatalf("snapshot = %+v", got)
	}
	if b.ListenerCount() != 1 {
		t.Errorf("ListenerCount = %d, want 1", b.ListenerCount())
	}

	source <- []highlight.Event{
		{Type: highlight.EventLine, LineIndex: 0, WordIndex: -1},
		{Type: highlight.EventWord, LineIndex: 0, WordIndex: 0, Text: "Hello", Duration: 1},
	}
	got = readEvents(t, ctx, conn)
	if len(got) != 2 || got[1].Text != "Hello" || got[1].Duration != 1 {
		t.Errorf("batch = %+v", got)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	deadline := time.Now().Add(2 * time.Second)
	for b.ListenerCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("listener not removed after client closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEventsHandlerRejectsPlainHTTP(t *testing.T) {
	b := NewBroadcaster[[]highlight.Event](8)
	rec := httptest.NewRecorder()
	NewEventsHandler(b, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rec.Code == http.StatusSwitchingProtocols {
		t.Error("plain GET should not upgrade")
	}
	if b.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", b.ListenerCount())
	}
}

// --- WebRTCHandler ---

func TestWebRTCHandlerDefaults(t *testing.T) {
	h := NewWebRTCHandler(NewFrameBroadcaster(), nil, nil, 0)
	if h.bitrate != 128000 {
		t.Errorf("bitrate = %d, want 128000", h.bitrate)
	}
	if h.PeerCount() != 0 {
		t.Errorf("PeerCount = %d, want 0", h.PeerCount())
	}
}

func TestWebRTCHandlerRejectsBadRequests(t *testing.T) {
	h := NewWebRTCHandler(NewFrameBroadcaster(), nil, nil, 96000)
	tests := []struct {
		method string
		body   string
		want   int
	}{
		{http.MethodOptions, "", http.StatusOK},
		{http.MethodGet, "", http.StatusMethodNotAllowed},
		{http.MethodPost, "not json", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/offer", strings.NewReader(tt.body)))
		if rec.Code != tt.want {
			t.Errorf("%s %q: status = %d, want %d", tt.method, tt.body, rec.Code, tt.want)
		}
	}
}

// --- HTTPHandler ---

func TestHTTPHandlerDefaultBitrate(t *testing.T) {
	if h := NewHTTPHandler(NewFrameBroadcaster(), 0); h.kbps != 192 {
		t.Errorf("kbps = %d, want 192", h.kbps)
	}
	if h := NewHTTPHandler(NewFrameBroadcaster(), 320); h.kbps != 320 {
		t.Errorf("kbps = %d, want 320", h.kbps)
	}
}

func TestMP3Args(t *testing.T) {
	args := strings.Join(mp3Args(256), " ")
	for _, want := range []string{"-ar 48000", "-ac 2", "-b:a 256k", "-i pipe:0"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	if !strings.HasSuffix(args, "pipe:1") {
		t.Errorf("args %q should end with pipe:1", args)
	}
}
