// Package push talks to an Expo-compatible push service: it obtains the
// device push token and delivers notification messages.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"eduportal/internal/netclient"
)

var (
	ErrNoProjectID = errors.New("push project id is not configured")
	// ErrPermissionDenied means the push service refused to issue a token
	// for this device
	ErrPermissionDenied = errors.New("push permission denied")
)

// Message is a single push notification
type Message struct {
	To    string         `json:"to"`
	Sound string         `json:"sound,omitempty"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// Ticket is the push service's receipt for one message
type Ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client calls the push service API
type Client struct {
	baseURL   string
	projectID string
	deviceID  string
	http      *http.Client
}

// NewClient creates a push client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL, projectID, deviceID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: projectID,
		deviceID:  deviceID,
		http:      httpClient,
	}
}

// PushToken requests the push token of this device
func (c *Client) PushToken(ctx context.Context) (string, error) {
	if c.projectID == "" {
		return "", ErrNoProjectID
	}

	reqBody := map[string]string{
		"projectId": c.projectID,
		"deviceId":  c.deviceID,
		"type":      "expo",
	}
	var resp struct {
		Data struct {
			ExpoPushToken string `json:"expoPushToken"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/push/getExpoPushToken", reqBody, &resp); err != nil {
		var ne *netclient.NetworkError
		if errors.As(err, &ne) && (ne.Status == http.StatusUnauthorized || ne.Status == http.StatusForbidden) {
			return "", fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
		return "", err
	}
	if resp.Data.ExpoPushToken == "" {
		return "", errors.New("push service returned no token")
	}
	return resp.Data.ExpoPushToken, nil
}

// Send delivers messages and returns one ticket per message
func (c *Client) Send(ctx context.Context, messages ...Message) ([]Ticket, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	for i := range messages {
		if messages[i].Sound == "" {
			messages[i].Sound = "default"
		}
		if messages[i].Data == nil {
			messages[i].Data = map[string]any{}
		}
	}

	var resp struct {
		Data []Ticket `json:"data"`
	}
	if err := c.post(ctx, "/push/send", messages, &resp); err != nil {
		return nil, err
	}

	var failed []string
	for _, ticket := range resp.Data {
		if ticket.Status == "error" {
			failed = append(failed, ticket.Message)
		}
	}
	if len(failed) > 0 {
		return resp.Data, fmt.Errorf("push service rejected %d message(s): %s", len(failed), strings.Join(failed, "; "))
	}
	return resp.Data, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netclient.StatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode push response: %w", err)
	}
	return nil
}
