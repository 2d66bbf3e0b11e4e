package payment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return &Client{
		baseURL:      serverURL,
		clientID:     "test-client",
		clientSecret: "test-secret",
		httpClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCreateOrderRequestsTokenFirst(t *testing.T) {
	var tokenRequests, orderRequests int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			tokenRequests++
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "test-client", user)
			assert.Equal(t, "test-secret", pass)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "token-abc",
				"expires_in":   3600,
			})
		case "/v2/checkout/orders":
			orderRequests++
			assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))

			var payload struct {
				Intent        string `json:"intent"`
				PurchaseUnits []struct {
					Amount struct {
						CurrencyCode string `json:"currency_code"`
						Value        string `json:"value"`
					} `json:"amount"`
				} `json:"purchase_units"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "CAPTURE", payload.Intent)
			require.Len(t, payload.PurchaseUnits, 1)
			assert.Equal(t, "USD", payload.PurchaseUnits[0].Amount.CurrencyCode)
			assert.Equal(t, "45.50", payload.PurchaseUnits[0].Amount.Value)

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "ORDER-123"})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	orderID, err := client.CreateOrder(45.50, "USD")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-123", orderID)
	assert.Equal(t, 1, tokenRequests)
	assert.Equal(t, 1, orderRequests)
}

func TestAccessTokenIsCachedAcrossCalls(t *testing.T) {
	var tokenRequests int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			tokenRequests++
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "token-abc",
				"expires_in":   3600,
			})
		case "/v2/checkout/orders":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "ORDER-1"})
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CreateOrder(10, "USD")
	require.NoError(t, err)
	_, err = client.CreateOrder(20, "USD")
	require.NoError(t, err)

	assert.Equal(t, 1, tokenRequests)
}

func TestConcurrentOrdersShareOneToken(t *testing.T) {
	var tokenRequests int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			atomic.AddInt32(&tokenRequests, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "token-abc",
				"expires_in":   3600,
			})
		case "/v2/checkout/orders":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "ORDER-1"})
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.CreateOrder(10, "USD")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenRequests))
}

func TestCaptureOrderReturnsCaptureID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "token-abc",
				"expires_in":   3600,
			})
		case "/v2/checkout/orders/ORDER-123/capture":
			assert.Equal(t, "POST", r.Method)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "COMPLETED",
				"purchase_units": []map[string]interface{}{
					{
						"payments": map[string]interface{}{
							"captures": []map[string]string{
								{"id": "CAP-456", "status": "COMPLETED"},
							},
						},
					},
				},
			})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	captureID, err := client.CaptureOrder("ORDER-123")
	require.NoError(t, err)
	assert.Equal(t, "CAP-456", captureID)
}

func TestCaptureOrderRejectsIncompleteCapture(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "token-abc",
				"expires_in":   3600,
			})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "PENDING",
			})
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CaptureOrder("ORDER-123")
	assert.Error(t, err)
}

func TestCreateOrderFailsOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "token-abc",
				"expires_in":   3600,
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CreateOrder(10, "USD")
	assert.Error(t, err)
}
