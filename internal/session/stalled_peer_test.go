package session_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/omochice/whisper-chat/internal/cipher"
	"github.com/omochice/whisper-chat/internal/identity"
	"github.com/omochice/whisper-chat/internal/session"
	"github.com/omochice/whisper-chat/internal/transport/ws"
)

func TestManager_StopWithStalledPeer(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		<-release
	}))
	defer server.Close()
	defer close(release)

	codec, err := cipher.New([]byte("aaaaaaaaaaaaaaaa"))
	require.NoError(t, err)

	m := session.New(session.Options{
		URL:      "ws" + strings.TrimPrefix(server.URL, "http"),
		Identity: identity.NewWithFingerprint("alice", "12345"),
		Codec:    codec,
		Dialer:   &ws.Dialer{},
	})
	m.Start()

	require.Eventually(t, func() bool { return m.State() == session.Connected },
		2*time.Second, 10*time.Millisecond)

	payload := strings.Repeat("x", 1<<20)
	for i := 0; i < 40; i++ {
		require.NoError(t, m.SendText(payload))
	}
	time.Sleep(300 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatalf("Stop() blocked with a stalled peer (state=%s)", m.State())
	}
	require.Equal(t, session.Stopped, m.State())
}
