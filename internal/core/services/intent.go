package services

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/logger"
)

// DefaultIntentThreshold is the classification confidence below which a
// turn falls back to a clarification request instead of guessing.
const DefaultIntentThreshold = 0.55

// DefaultSwitchThreshold is the confidence a competing intent needs to
// pull an in-progress conversation out of its current intent.
const DefaultSwitchThreshold = 0.7

// intentExemplars are embedded once and compared against each utterance.
// Classification picks the intent of the nearest exemplar.
var intentExemplars = map[domain.Intent][]string{
	domain.IntentPolicySearch: {
		"What is the maximum maternity leave duration?",
		"How many casual leave days do I get per year?",
		"What documents are needed to claim medical reimbursement?",
		"Can I carry forward unused earned leave?",
		"What is the notice period policy?",
	},
	domain.IntentLeaveApplication: {
		"I want to apply for two days of casual leave",
		"Please file sick leave for tomorrow",
		"Book my vacation from the 10th to the 20th",
		"I need leave next Friday",
		"Cancel my leave request and move it a week later",
	},
}

// IntentClassifier classifies utterances by embedding similarity
// against intent exemplars. The embedding capability is assumed
// deterministic for identical input.
type IntentClassifier struct {
	embedder  driven.EmbeddingService
	threshold float64

	once     sync.Once
	initErr  error
	vectors  map[domain.Intent][][]float32
	exemplar map[domain.Intent][]string
}

// NewIntentClassifier creates a classifier. threshold <= 0 uses the
// default.
func NewIntentClassifier(embedder driven.EmbeddingService, threshold float64) *IntentClassifier {
	if threshold <= 0 {
		threshold = DefaultIntentThreshold
	}
	return &IntentClassifier{
		embedder:  embedder,
		threshold: threshold,
		exemplar:  intentExemplars,
	}
}

// Classify returns the best non-fallback intent and its confidence.
// Confidence below the threshold yields IntentFallback.
func (c *IntentClassifier) Classify(ctx context.Context, utterance string) (domain.Intent, float64, error) {
	if err := c.init(ctx); err != nil {
		return domain.IntentFallback, 0, fmt.Errorf("initialise intent exemplars: %w", err)
	}

	embedding, err := c.embedder.Embed(ctx, utterance)
	if err != nil {
		return domain.IntentFallback, 0, fmt.Errorf("embed utterance: %w", err)
	}

	best := domain.IntentFallback
	bestScore := 0.0
	for intent, vectors := range c.vectors {
		for _, v := range vectors {
			if score := CosineSimilarity(embedding, v); score > bestScore {
				best, bestScore = intent, score
			}
		}
	}

	logger.Debug("Intent classification: %s (%.3f)", best, bestScore)
	if bestScore < c.threshold {
		return domain.IntentFallback, bestScore, nil
	}
	return best, bestScore, nil
}

// init embeds the exemplars on first use.
func (c *IntentClassifier) init(ctx context.Context) error {
	c.once.Do(func() {
		c.vectors = make(map[domain.Intent][][]float32, len(c.exemplar))
		for intent, texts := range c.exemplar {
			embeddings, err := c.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				c.initErr = err
				return
			}
			c.vectors[intent] = embeddings
		}
	})
	return c.initErr
}

// CosineSimilarity maps the cosine of two vectors into [0, 1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}

// IntentRouter advances the per-turn state machine:
//
//	Unset -> {PolicySearch, LeaveApplication, Fallback} -> Terminal
//
// A session in LeaveApplication keeps accumulating slots across turns;
// it only leaves the intent when a competing classification is
// confident enough to count as a topic change, in which case the turn
// re-enters from Unset.
type IntentRouter struct {
	classifier      *IntentClassifier
	switchThreshold float64
}

// NewIntentRouter creates a router. switchThreshold <= 0 uses the
// default.
func NewIntentRouter(classifier *IntentClassifier, switchThreshold float64) *IntentRouter {
	if switchThreshold <= 0 {
		switchThreshold = DefaultSwitchThreshold
	}
	return &IntentRouter{classifier: classifier, switchThreshold: switchThreshold}
}

// RouteTurn classifies one utterance in the context of the session
// state and returns the updated state plus the intent that should
// handle the turn. Confirmed slot values survive the transition.
func (r *IntentRouter) RouteTurn(
	ctx context.Context, state domain.ConversationState, utterance string,
) (domain.ConversationState, float64, error) {
	state.TurnID++

	intent, confidence, err := r.classifier.Classify(ctx, utterance)
	if err != nil {
		return state, 0, err
	}

	switch state.Intent {
	case domain.IntentLeaveApplication:
		// Mid-dialogue turns are usually slot answers that do not look
		// like either exemplar set. Stay in the leave flow unless a
		// competing intent is confidently detected.
		if intent == domain.IntentPolicySearch && confidence >= r.switchThreshold {
			logger.Info("Topic change detected in session %s (%.3f), re-entering from unset", state.SessionID, confidence)
			state.Intent = domain.IntentPolicySearch
			state.Slots = domain.LeaveSlots{}
		}
	default:
		state.Intent = intent
	}

	return state, confidence, nil
}
