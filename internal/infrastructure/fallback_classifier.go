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

// HTTPFallbackClassifier calls the external probabilistic classifier
// microservice. Anything it returns outside the allow-list is coerced
// to nil here; the caller applies the validator again anyway.
type HTTPFallbackClassifier struct {
	url    string
	client *http.Client
}

func NewHTTPFallbackClassifier(url string) *HTTPFallbackClassifier {
	return &HTTPFallbackClassifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (f *HTTPFallbackClassifier) Classify(ctx context.Context, text string) (entities.IntentResult, error) {
	payload := map[string]string{"text": text}
	data, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", f.url, bytes.NewBuffer(data))
	if err != nil {
		return entities.IntentResult{Method: entities.DecisionNone}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return entities.IntentResult{Method: entities.DecisionNone}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entities.IntentResult{Method: entities.DecisionNone}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var body struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return entities.IntentResult{Method: entities.DecisionNone}, err
	}

	result := entities.IntentResult{
		Intent:     entities.ValidateIntent(body.Intent),
		Confidence: body.Confidence,
		Method:     entities.DecisionFallback,
	}
	if result.Intent == nil {
		result.Confidence = 0
	}
	return result, nil
}
