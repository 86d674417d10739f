package push

import (
	"bytes"
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

var _ contract.INotifier = (*WebhookNotifier)(nil)

// Notification is the JSON body posted to the push endpoint.
type Notification struct {
	UserID  string            `json:"userId"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Payload map[string]string `json:"payload,omitempty"`
}

// WebhookNotifier posts each notification to an HTTP endpoint owned by the push provider.
// Any non 2xx answer is a delivery failure.
type WebhookNotifier struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewWebhookNotifier(endpoint, token string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{endpoint: endpoint, token: token, client: client}
}

func (n *WebhookNotifier) Notify(ctx context.Context, user domain.UserID, title, body string, payload map[string]string) error {
	data, err := json.Marshal(Notification{UserID: user.String(), Title: title, Body: body, Payload: payload})
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrDelivery, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrDelivery, err)
	}
	request.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		request.Header.Set("Authorization", "Bearer "+n.token)
	}

	response, err := n.client.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrDelivery, err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("%w: push endpoint answered %d", errors.ErrDelivery, response.StatusCode)
	}
	return nil
}
