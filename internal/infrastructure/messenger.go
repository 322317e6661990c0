package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WhatsAppBusinessMessenger pushes watchdog-generated messages to the
// user through the WhatsApp Business cloud API. Live turns answer over
// the webhook response instead.
type WhatsAppBusinessMessenger struct {
	accessToken   string
	phoneNumberID string
	client        *http.Client
}

func NewWhatsAppBusinessMessenger(accessToken, phoneNumberID string) *WhatsAppBusinessMessenger {
	return &WhatsAppBusinessMessenger{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		client:        http.DefaultClient,
	}
}

func (w *WhatsAppBusinessMessenger) SendReply(ctx context.Context, tenantID, userID, body string) error {
	url := fmt.Sprintf("https://graph.facebook.com/v18.0/%s/messages", w.phoneNumberID)
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                userID,
		"type":              "text",
		"text": map[string]string{
			"body": body,
		},
	}
	data, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp send returned status %d", resp.StatusCode)
	}
	return nil
}

// LogMessenger logs outbound pings instead of delivering them. Demo mode.
type LogMessenger struct {
	log *Logger
}

func NewLogMessenger(log *Logger) *LogMessenger {
	return &LogMessenger{log: log}
}

func (l *LogMessenger) SendReply(ctx context.Context, tenantID, userID, body string) error {
	l.log.Info("outbound reply", "tenant", tenantID, "user", userID, "body", body)
	return nil
}
