package meeting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return &Client{
		baseURL:    serverURL,
		authToken:  "test-token",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCreateRoomReturnsRoomID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rooms", r.URL.Path)
		require.Equal(t, "POST", r.Method)
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]string{"roomId": "room-xyz"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	roomID, err := client.CreateRoom()
	require.NoError(t, err)
	assert.Equal(t, "room-xyz", roomID)
}

func TestCreateRoomFailsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CreateRoom()
	assert.Error(t, err)
}

func TestCreateRoomFailsOnEmptyRoomID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CreateRoom()
	assert.Error(t, err)
}
