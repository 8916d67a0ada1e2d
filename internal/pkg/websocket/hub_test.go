package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func TestPublishReachesListeners(t *testing.T) {
	hub := startHub(t)
	events := make(chan *Event, 1)
	hub.AddListener(events)

	hub.Publish("payment", "created", 42)

	select {
	case ev := <-events:
		assert.Equal(t, EventTypeChange, ev.Type)
		assert.Equal(t, "payment", ev.Entity)
		assert.Equal(t, "created", ev.Action)
		assert.Equal(t, int64(42), ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	hub.RemoveListener(events)
	hub.Publish("payment", "created", 43)
	select {
	case <-events:
		t.Fatal("removed listener still receives events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectedClientReceivesChangeEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)
	handler := NewHandler(hub, nil, zerolog.Nop())

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set("userID", int64(1))
		handler.HandleConnection(c)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientsCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish("document", "verified", 7)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "document", ev.Entity)
	assert.Equal(t, "verified", ev.Action)
	assert.Equal(t, int64(7), ev.ID)
}

func TestHandlerRejectsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(startHub(t), nil, zerolog.Nop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws", nil)
	handler.HandleConnection(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://admin.local/"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "no Origin header")

	req.Header.Set("Origin", "http://admin.local")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.local")
	assert.False(t, check(req))

	req.Header.Set("Origin", "http://evil.local")
	assert.True(t, originChecker([]string{"*"})(req))
}
