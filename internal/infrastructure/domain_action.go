package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"atendebot/internal/entities"
)

// HTTPDomainAction calls the external booking/availability engine.
type HTTPDomainAction struct {
	url    string
	client *http.Client
}

func NewHTTPDomainAction(url string) *HTTPDomainAction {
	return &HTTPDomainAction{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *HTTPDomainAction) Execute(ctx context.Context, req entities.ActionRequest) (entities.ActionResult, error) {
	payload := map[string]interface{}{
		"tenant_id": req.TenantID,
		"user_id":   req.UserID,
		"state":     req.State,
		"text":      req.Text,
	}
	if req.Intent != nil {
		payload["intent"] = *req.Intent
	}
	data, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.url, bytes.NewBuffer(data))
	if err != nil {
		return entities.ActionResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return entities.ActionResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entities.ActionResult{}, fmt.Errorf("action service returned status %d", resp.StatusCode)
	}

	var body struct {
		Success      bool   `json:"success"`
		Effect       string `json:"effect"`
		Details      string `json:"details"`
		Reply        string `json:"reply"`
		ExpectsReply bool   `json:"expects_reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return entities.ActionResult{}, err
	}

	return entities.ActionResult{
		Success:      body.Success,
		Effect:       entities.ActionEffect(body.Effect),
		Details:      body.Details,
		Reply:        body.Reply,
		ExpectsReply: body.ExpectsReply,
	}, nil
}

// StubDomainAction answers every action locally with a canned success.
// Used in demo mode when no action service URL is configured.
type StubDomainAction struct{}

func NewStubDomainAction() *StubDomainAction {
	return &StubDomainAction{}
}

func (a *StubDomainAction) Execute(ctx context.Context, req entities.ActionRequest) (entities.ActionResult, error) {
	if req.Intent == nil {
		return entities.ActionResult{Success: true, Effect: entities.EffectNone}, nil
	}
	switch *req.Intent {
	case entities.IntentCancel:
		return entities.ActionResult{Success: true, Effect: entities.EffectCancelled}, nil
	case entities.IntentReschedule:
		return entities.ActionResult{Success: true, Effect: entities.EffectRescheduled}, nil
	case entities.IntentConfirm:
		return entities.ActionResult{Success: true, Effect: entities.EffectConfirmed}, nil
	case entities.IntentAvailability:
		return entities.ActionResult{Success: true, Effect: entities.EffectCreated, ExpectsReply: true}, nil
	default:
		return entities.ActionResult{Success: true, Effect: entities.EffectNone}, nil
	}
}
