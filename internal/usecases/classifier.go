package usecases

import (
	"context"
	"strings"

	"atendebot/internal/entities"
	"atendebot/internal/infrastructure"
	"atendebot/internal/interfaces"
)

// DefaultFallbackThreshold: regex results at or above this confidence
// are final; anything below (or no match at all) consults the fallback.
const DefaultFallbackThreshold = 0.5

// Classifier is the multi-stage intent classifier: deterministic regex
// fast path over the rule table, probabilistic fallback when the fast
// path is inconclusive. The regex path is pure; the same input always
// yields the same result.
type Classifier struct {
	table     *RuleTable
	fallback  interfaces.FallbackClassifier
	threshold float64
	log       *infrastructure.Logger
}

func NewClassifier(table *RuleTable, fallback interfaces.FallbackClassifier, threshold float64, log *infrastructure.Logger) *Classifier {
	if threshold <= 0 {
		threshold = DefaultFallbackThreshold
	}
	return &Classifier{
		table:     table,
		fallback:  fallback,
		threshold: threshold,
		log:       log,
	}
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// confidenceFor applies the heuristic for general rule matches.
// Greeting is pinned at 0.9; services leans on whether the user asked
// a question; everything else keys off message length.
func confidenceFor(intent entities.Intent, normalized, raw string) float64 {
	switch intent {
	case entities.IntentGreeting:
		return 0.9
	case entities.IntentServices:
		if strings.HasSuffix(strings.TrimSpace(raw), "?") {
			return 0.9
		}
		return 0.85
	}
	if len([]rune(normalized)) < 40 {
		return 0.92
	}
	return 0.85
}

// Classify runs the fast path and, when inconclusive, the fallback.
// Fallback failures recover locally to a nil result; the turn still
// completes.
func (c *Classifier) Classify(ctx context.Context, text string) entities.IntentResult {
	normalized := normalize(text)

	// Exact menu replies short-circuit everything, including digit 5's
	// nil result: the user explicitly opted out of classification.
	if sc, ok := c.table.Shortcut(normalized); ok {
		return entities.IntentResult{Intent: sc.Intent, Confidence: sc.Confidence, Method: entities.DecisionRegex}
	}

	var fast entities.IntentResult
	if intent, ok := c.table.Match(normalized); ok {
		i := intent
		fast = entities.IntentResult{
			Intent:     &i,
			Confidence: confidenceFor(intent, normalized, text),
			Method:     entities.DecisionRegex,
		}
		if fast.Confidence >= c.threshold {
			return fast
		}
	}

	if c.fallback == nil {
		if fast.Intent != nil {
			return fast
		}
		return entities.IntentResult{Method: entities.DecisionNone}
	}

	result, err := c.fallback.Classify(ctx, text)
	if err != nil {
		c.log.Warn("fallback classifier unavailable", "error", err)
		if fast.Intent != nil {
			return fast
		}
		return entities.IntentResult{Confidence: 0, Method: entities.DecisionNone}
	}

	if result.Intent != nil && !result.Intent.IsAllowed() {
		c.log.Warn("fallback returned intent outside allow-list", "intent", string(*result.Intent))
		result.Intent = nil
		result.Confidence = 0
	}
	result.Method = entities.DecisionFallback
	if result.Intent == nil && fast.Intent != nil {
		return fast
	}
	return result
}

// ClassifyAll surfaces every matching intent in rule order, no
// fallback applied. Used when multiple simultaneous signals matter.
func (c *Classifier) ClassifyAll(text string) []entities.Intent {
	return c.table.MatchAll(normalize(text))
}

// PrimaryIntent is the first element of ClassifyAll, or nil.
func (c *Classifier) PrimaryIntent(text string) *entities.Intent {
	all := c.ClassifyAll(text)
	if len(all) == 0 {
		return nil
	}
	return &all[0]
}
