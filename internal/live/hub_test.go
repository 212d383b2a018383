package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestHubServer(t *testing.T) (*Hub, string) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	return hub, strings.Replace(srv.URL, "http://", "ws://", 1)
}

func TestHubRegisterUnregisterTracksClientCount(t *testing.T) {
	hub, url := newTestHubServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubPublishBroadcastsToConnectedClients(t *testing.T) {
	hub, url := newTestHubServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Tick: 7, Running: "t1", ReadyIDs: []string{"t2"}})

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, 7, ev.Tick)
	require.Equal(t, "t1", ev.Running)
	require.Equal(t, []string{"t2"}, ev.ReadyIDs)
}

func TestHubPublishNonBlockingWhenBufferFull(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	hub := NewHub(log)
	// No Run loop consuming events: Publish must not block even once the
	// channel buffer fills up.
	for i := 0; i < 1000; i++ {
		hub.Publish(Event{Tick: i})
	}
}
