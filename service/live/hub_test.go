package live

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	router := mux.NewRouter()
	NewLiveHandler(hub).RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func mintToken(t *testing.T, userID string) string {
	t.Setenv("SECRET_KEY", "test-secret")
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(os.Getenv("SECRET_KEY")))
	require.NoError(t, err)
	return token
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	wsURL := strings.Replace(server.URL, "http", "ws", 1) + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscriber(t *testing.T, hub *Hub, appointmentID uint) {
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients[appointmentID]) > 0
	}, time.Second, 10*time.Millisecond)
}

func TestSubscriberReceivesMeetingEvents(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub)
	token := mintToken(t, "1")

	conn := dial(t, server, "/ws/appointments/42?token="+token)

	// Registration finishes just after the handshake.
	waitForSubscriber(t, hub, 42)
	hub.Notify(42, Event{Type: "meeting_status", AppointmentID: 42, Status: "started"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "meeting_status", event.Type)
	assert.Equal(t, uint(42), event.AppointmentID)
	assert.Equal(t, "started", event.Status)
}

func TestEventsDoNotLeakAcrossAppointments(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub)
	token := mintToken(t, "1")

	conn := dial(t, server, "/ws/appointments/7?token="+token)

	waitForSubscriber(t, hub, 7)
	hub.Notify(42, Event{Type: "meeting_status", AppointmentID: 42, Status: "started"})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var event Event
	err := conn.ReadJSON(&event)
	assert.Error(t, err)
}

func TestNotifySurvivesDisconnectingSubscribers(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub)
	token := mintToken(t, "1")

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				hub.Notify(42, Event{Type: "meeting_status", AppointmentID: 42, Status: "started"})
			}
		}
	}()

	// Churn subscribers while the broadcaster runs. None of them read,
	// so both the disconnect path and the slow-client drop path fire.
	wsURL := strings.Replace(server.URL, "http", "ws", 1) + "/ws/appointments/42?token=" + token
	for i := 0; i < 25; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		conn.Close()
	}

	close(done)
	wg.Wait()
}

func TestConnectionRejectedWithoutToken(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub)

	wsURL := strings.Replace(server.URL, "http", "ws", 1) + "/ws/appointments/42"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectionRejectedWithBadToken(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	hub := NewHub()
	server := newTestServer(t, hub)

	wsURL := strings.Replace(server.URL, "http", "ws", 1) + "/ws/appointments/42?token=not-a-token"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
