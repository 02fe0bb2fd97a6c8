package coaching

import (
	"sort"

	"LTPCoach/internal/domain/models"
)

// maxMessages caps one evaluation's output so the viewer is never flooded.
const maxMessages = 4

// Engine evaluates the rule set against a context. It holds no state beyond
// the rule list; identical contexts always produce identical messages.
type Engine struct {
	rules []Rule
	limit int
}

func NewEngine() *Engine {
	return &Engine{rules: defaultRules(), limit: maxMessages}
}

// Evaluate runs every rule against the context and returns the fired
// messages ordered by priority descending, capped at the message limit.
func (e *Engine) Evaluate(ctx models.CoachingContext) []models.CoachingMessage {
	out := make([]models.CoachingMessage, 0, len(e.rules))
	for _, r := range e.rules {
		if msg := r.Fire(ctx); msg != nil {
			out = append(out, *msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if len(out) > e.limit {
		out = out[:e.limit]
	}
	return out
}
