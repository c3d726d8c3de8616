package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultMSG91Endpoint = "https://api.msg91.com/api/v5/whatsapp/whatsapp-outbound"

// MSG91 relays WhatsApp traffic through the MSG91 gateway. Buttons are not
// supported, replies always carry the numbered menu text.
type MSG91 struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewMSG91(apiKey, endpoint string) *MSG91 {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = defaultMSG91Endpoint
	}
	return &MSG91{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}
}

type msg91Inbound struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

func ParseMSG91(body []byte) (Inbound, error) {
	var p msg91Inbound
	if err := json.Unmarshal(body, &p); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
	}
	if strings.TrimSpace(p.Sender) == "" {
		return Inbound{}, fmt.Errorf("%w: missing sender", ErrUnsupportedPayload)
	}
	return Inbound{
		Channel:   MSG91Name,
		Sender:    strings.TrimSpace(p.Sender),
		MessageID: p.MessageID,
		Text:      p.Message,
	}, nil
}

type msg91SendRequest struct {
	To      string `json:"to"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *MSG91) Send(ctx context.Context, msg Outbound) error {
	if c == nil {
		return errors.New("msg91 client is nil")
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("missing recipient")
	}

	raw, err := json.Marshal(msg91SendRequest{To: msg.To, Type: "text", Message: msg.Text})
	if err != nil {
		return fmt.Errorf("msg91 marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("msg91 create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authkey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("msg91 request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("msg91 send failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
