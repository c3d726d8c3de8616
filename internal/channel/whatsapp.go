package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultWhatsAppBase = "https://graph.facebook.com/v20.0"

	// Cloud API limits for interactive reply buttons.
	maxReplyButtons    = 3
	maxButtonTitle     = 20
	maxInteractiveBody = 1024
)

type WhatsAppConfig struct {
	BaseURL       string
	PhoneNumberID string
	Token         string
	VerifyToken   string
	AppSecret     string
}

// WhatsApp talks to the WhatsApp Cloud API.
type WhatsApp struct {
	baseURL       string
	phoneNumberID string
	token         string
	verifyToken   string
	appSecret     string
	httpClient    *http.Client
}

func NewWhatsApp(cfg WhatsAppConfig) *WhatsApp {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultWhatsAppBase
	}
	return &WhatsApp{
		baseURL:       base,
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.Token,
		verifyToken:   cfg.VerifyToken,
		appSecret:     cfg.AppSecret,
		httpClient:    &http.Client{Timeout: 8 * time.Second},
	}
}

// Verify answers the webhook subscription handshake. It returns the challenge
// to echo when mode and token match.
func (w *WhatsApp) Verify(mode, token, challenge string) (string, bool) {
	if w.verifyToken == "" || mode != "subscribe" || token != w.verifyToken {
		return "", false
	}
	return challenge, true
}

// VerifySignature checks the X-Hub-Signature-256 header against the app
// secret. Without a configured secret every body is accepted.
func (w *WhatsApp) VerifySignature(body []byte, header string) bool {
	if w.appSecret == "" {
		return true
	}
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(w.appSecret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

type waWebhook struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []waMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type waMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive struct {
		Type        string `json:"type"`
		ButtonReply struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
	Button struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button"`
}

// ParseWhatsApp extracts customer messages from a webhook body. Status
// callbacks carry no messages and yield an empty slice.
func ParseWhatsApp(body []byte) ([]Inbound, error) {
	var hook waWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
	}
	if hook.Object != "whatsapp_business_account" {
		return nil, fmt.Errorf("%w: object %q", ErrUnsupportedPayload, hook.Object)
	}

	var out []Inbound
	for _, e := range hook.Entry {
		for _, c := range e.Changes {
			for _, m := range c.Value.Messages {
				if m.From == "" {
					continue
				}
				in := Inbound{Channel: WhatsAppName, Sender: m.From, MessageID: m.ID}
				switch m.Type {
				case "text":
					in.Text = m.Text.Body
				case "interactive":
					in.Button = m.Interactive.ButtonReply.ID
					in.Text = m.Interactive.ButtonReply.Title
				case "button":
					in.Button = m.Button.Payload
					in.Text = m.Button.Text
				}
				// Anything else (media, location) arrives as empty text and is re-prompted.
				out = append(out, in)
			}
		}
	}
	return out, nil
}

type waSendRequest struct {
	MessagingProduct string         `json:"messaging_product"`
	RecipientType    string         `json:"recipient_type"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Text             *waText        `json:"text,omitempty"`
	Interactive      *waInteractive `json:"interactive,omitempty"`
}

type waText struct {
	Body string `json:"body"`
}

type waInteractive struct {
	Type   string    `json:"type"`
	Body   waText    `json:"body"`
	Action waActions `json:"action"`
}

type waActions struct {
	Buttons []waButton `json:"buttons"`
}

type waButton struct {
	Type  string        `json:"type"`
	Reply waButtonReply `json:"reply"`
}

type waButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Send posts a reply. Up to three buttons go out as an interactive message;
// otherwise the reply is plain text, whose numbered menus work without buttons.
func (w *WhatsApp) Send(ctx context.Context, msg Outbound) error {
	if w == nil {
		return errors.New("whatsapp client is nil")
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("missing recipient")
	}

	payload := waSendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.To,
	}
	if n := len(msg.Buttons); n > 0 && n <= maxReplyButtons && utf8.RuneCountInString(msg.Text) <= maxInteractiveBody {
		ia := &waInteractive{Type: "button", Body: waText{Body: msg.Text}}
		for _, b := range msg.Buttons {
			ia.Action.Buttons = append(ia.Action.Buttons, waButton{
				Type:  "reply",
				Reply: waButtonReply{ID: b.ID, Title: truncate(b.Title, maxButtonTitle)},
			})
		}
		payload.Type = "interactive"
		payload.Interactive = ia
	} else {
		payload.Type = "text"
		payload.Text = &waText{Body: msg.Text}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("whatsapp create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+w.token)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp send failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
