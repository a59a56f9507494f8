package greenapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"whatsenquiry/pkg/circuitbreaker"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(Config{
		BaseURL:         baseURL,
		InstanceID:      "1101",
		APIToken:        "token123",
		Timeout:         2 * time.Second,
		BreakerFailures: 3,
		BreakerReset:    time.Minute,
	}, logger)
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody SendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(SendMessageResponse{IDMessage: "out1"})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.SendMessage(context.Background(), "918106811285@c.us", "hello")
	require.NoError(t, err)

	assert.Equal(t, "/waInstance1101/sendMessage/token123", gotPath)
	assert.Equal(t, "918106811285@c.us", gotBody.ChatID)
	assert.Equal(t, "hello", gotBody.Message)
}

func TestSendMessageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.SendMessage(context.Background(), "918106811285@c.us", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestSendMessageBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 3; i++ {
		require.Error(t, client.SendMessage(context.Background(), "x@c.us", "hello"))
	}

	// Breaker is open now: the next call is rejected without reaching
	// the server.
	err := client.SendMessage(context.Background(), "x@c.us", "hello")
	require.Error(t, err)
	assert.True(t, circuitbreaker.IsCircuitBreakerError(err))
}

func TestSendMessageContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := client.SendMessage(ctx, "x@c.us", "hello")
	require.Error(t, err)
}

func TestCheckState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/waInstance1101/getStateInstance/token123", r.URL.Path)
		json.NewEncoder(w).Encode(StateResponse{StateInstance: "authorized"})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	state, err := client.CheckState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "authorized", state.StateInstance)
}
