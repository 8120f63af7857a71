// Package router maps raw user text to an intent group via the external
// classification capability. Classification failure never blocks a reply: any
// error or nonsense verdict resolves to the "none" group so the synthesizer
// can still answer generically.
package router

import (
	"context"
	"log/slog"

	"github.com/jholhewres/nene/pkg/nene/catalog"
	"github.com/jholhewres/nene/pkg/nene/llm"
)

// Classifier is the external classification capability.
type Classifier interface {
	Classify(ctx context.Context, allowed []string, text string) (llm.Classification, error)
}

// Result is the routing verdict for one inbound message.
type Result struct {
	// Group is a catalog group id, or catalog.None when nothing matched.
	Group catalog.GroupID

	// Confidence is the classifier's confidence, clamped into [0, 1].
	Confidence float64
}

// NoMatch is the fail-open result used for errors and invalid verdicts.
var NoMatch = Result{Group: catalog.None, Confidence: 0}

// Router classifies inbound text against the catalog's group set.
type Router struct {
	catalog    *catalog.Catalog
	classifier Classifier
	logger     *slog.Logger

	// allowed is the precomputed group list handed to the classifier.
	allowed []string
}

// New creates a Router over the given catalog and classifier.
func New(cat *catalog.Catalog, classifier Classifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	groups := cat.Groups()
	allowed := make([]string, len(groups))
	for i, g := range groups {
		allowed[i] = string(g)
	}

	return &Router{
		catalog:    cat,
		classifier: classifier,
		logger:     logger.With("component", "router"),
		allowed:    allowed,
	}
}

// Route classifies text into a group plus confidence. Never returns an error:
// classifier failures and out-of-set verdicts clamp to NoMatch.
func (r *Router) Route(ctx context.Context, text string) Result {
	verdict, err := r.classifier.Classify(ctx, r.allowed, text)
	if err != nil {
		r.logger.Warn("classification failed, routing to none", "error", err)
		return NoMatch
	}

	group := catalog.GroupID(verdict.Group)
	if group != catalog.None && !r.catalog.Has(group) {
		r.logger.Warn("classifier returned unknown group, routing to none",
			"group", verdict.Group)
		return NoMatch
	}

	confidence := verdict.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	r.logger.Debug("routed", "group", group, "confidence", confidence)
	return Result{Group: group, Confidence: confidence}
}
