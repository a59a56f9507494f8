package notify

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"whatsenquiry/internal/models"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewHub(logger)
}

func TestHubDeliversEventToClient(t *testing.T) {
	hub := newTestHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait for the server side to register the client.
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	sent := models.EnquiryCreatedEvent{
		EnquiryID:    7,
		DisplayName:  "John Doe",
		MobileNumber: "918106811285",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	hub.PublishEnquiryCreated(sent)

	var got models.EnquiryCreatedEvent
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, sent.EnquiryID, got.EnquiryID)
	assert.Equal(t, sent.DisplayName, got.DisplayName)
	assert.Equal(t, sent.MobileNumber, got.MobileNumber)
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := newTestHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubPublishWithoutClientsDoesNotBlock(t *testing.T) {
	hub := newTestHub()

	done := make(chan struct{})
	go func() {
		hub.PublishEnquiryCreated(models.EnquiryCreatedEvent{EnquiryID: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no clients connected")
	}
}

func TestHubClosedDropsPublishes(t *testing.T) {
	hub := newTestHub()
	hub.Close()
	hub.PublishEnquiryCreated(models.EnquiryCreatedEvent{EnquiryID: 1})
	assert.Equal(t, 0, hub.ClientCount())
}
