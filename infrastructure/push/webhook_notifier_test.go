package push

import (
	"challenge-chat/errors"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_Posts_Json(t *testing.T) {
	req := require.New(t)
	received := make(chan Notification, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal("Bearer push-token", r.Header.Get("Authorization"))
		var n Notification
		req.NoError(json.NewDecoder(r.Body).Decode(&n))
		received <- n
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, "push-token", server.Client())
	err := notifier.Notify(context.Background(), "bob", "Alice in c1", "hello", map[string]string{"room_id": "c1"})

	req.NoError(err)
	n := <-received
	req.Equal("bob", n.UserID)
	req.Equal("Alice in c1", n.Title)
	req.Equal("hello", n.Body)
	req.Equal("c1", n.Payload["room_id"])
}

func TestWebhookNotifier_Non_2xx_Is_A_Delivery_Error(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, "", nil).Notify(context.Background(), "bob", "t", "b", nil)

	req.ErrorIs(err, errors.ErrDelivery)
	req.Equal(errors.KindDelivery, errors.KindOf(err))
}

func TestWebhookNotifier_Honours_Context_Timeout(t *testing.T) {
	req := require.New(t)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewWebhookNotifier(server.URL, "", server.Client()).Notify(ctx, "bob", "t", "b", nil)

	req.ErrorIs(err, errors.ErrDelivery)
}

func TestLogNotifier_Never_Fails(t *testing.T) {
	req := require.New(t)
	req.NoError(NewLogNotifier(slog.Default()).Notify(context.Background(), "bob", "t", "b", nil))
}
