package ws_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/omochice/whisper-chat/internal/transport/ws"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialer_ReadText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")

		_ = c.Write(context.Background(), websocket.MessageText, []byte("sealed frame"))
		c.Read(context.Background())
	}))
	defer server.Close()

	dialer := &ws.Dialer{}
	conn, err := dialer.Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	data, err := conn.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != "sealed frame" {
		t.Errorf("Read() = %q, want %q", data, "sealed frame")
	}
	if conn.RemoteAddr() == "" {
		t.Error("RemoteAddr() returned empty string")
	}
}

func TestDialer_WriteText(t *testing.T) {
	type frame struct {
		typ  websocket.MessageType
		data []byte
	}
	received := make(chan frame, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")

		typ, data, err := c.Read(context.Background())
		if err != nil {
			return
		}
		received <- frame{typ: typ, data: data}
	}))
	defer server.Close()

	dialer := &ws.Dialer{}
	conn, err := dialer.Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := conn.Write(context.Background(), []byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	select {
	case got := <-received:
		if got.typ != websocket.MessageText {
			t.Errorf("frame type = %v, want text", got.typ)
		}
		if string(got.data) != "hello" {
			t.Errorf("server received %q, want %q", got.data, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
	}
}

func TestDialer_Refused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	dialer := &ws.Dialer{HandshakeTimeout: time.Second}
	if _, err := dialer.Dial(context.Background(), url); err == nil {
		t.Fatal("expected error dialing a closed server")
	}
}

func TestClientConn_ReadCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		c.Read(context.Background())
	}))
	defer server.Close()

	dialer := &ws.Dialer{}
	conn, err := dialer.Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = conn.Read(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

func TestClientConn_ReadAfterServerClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c.Close(websocket.StatusGoingAway, "bye")
	}))
	defer server.Close()

	dialer := &ws.Dialer{}
	conn, err := dialer.Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Read(context.Background()); err == nil {
		t.Error("expected error after server close")
	}
}

// stalledServer upgrades and then never reads until the test ends.
func stalledServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})
	return server
}

// fillUntilError writes 1 MiB frames until Write fails and reports the error.
func fillUntilError(ctx context.Context, write func(context.Context, []byte) error) <-chan error {
	done := make(chan error, 1)
	payload := []byte(strings.Repeat("x", 1<<20))
	go func() {
		for {
			if err := write(ctx, payload); err != nil {
				done <- err
				return
			}
		}
	}()
	return done
}

func TestClientConn_CloseUnblocksStalledWrite(t *testing.T) {
	server := stalledServer(t)

	conn, err := (&ws.Dialer{}).Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	writeErr := fillUntilError(context.Background(), conn.Write)
	time.Sleep(300 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		conn.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close() blocked behind a stalled write")
	}
	select {
	case err := <-writeErr:
		if err == nil {
			t.Error("expected the stalled write to fail")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("stalled write never returned after Close()")
	}
}

func TestClientConn_WriteCancelled(t *testing.T) {
	server := stalledServer(t)

	conn, err := (&ws.Dialer{}).Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	writeErr := fillUntilError(ctx, conn.Write)
	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-writeErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Write() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Write() ignored cancellation")
	}
}
