// Package answer phrases grounded answers from retrieved regulation chunks,
// with evidence traceback to the source documents.
package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/parcelmind/regsearch/internal/evidence"
	"github.com/parcelmind/regsearch/internal/generation"
	"github.com/parcelmind/regsearch/internal/models"
	"github.com/parcelmind/regsearch/internal/retrieve"
)

// noEvidenceAnswer is returned without calling the generator when retrieval
// produced nothing to ground an answer in.
const noEvidenceAnswer = "No relevant regulation excerpts were found for your property and question. " +
	"Please ensure the address is in a supported area and that the regulation index has been built."

// Result is a generated answer with its evidence traceback. The evidence is
// derived from the same chunks the generator saw, independent of how the
// answer is phrased.
type Result struct {
	Answer   string          `json:"answer"`
	Evidence []evidence.Item `json:"evidence"`
}

// Answerer turns retrieved chunks into a cited answer.
type Answerer struct {
	generator generation.Generator
	logger    *zap.Logger
}

// New creates an answerer. logger may be nil.
func New(generator generation.Generator, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{generator: generator, logger: logger}
}

// Answer generates an answer to the question from the retrieved chunks and
// property context. With no retrieved chunks it returns a fixed no-evidence
// message and an empty evidence list, never an error. A generation failure is
// surfaced to the caller.
func (a *Answerer) Answer(ctx context.Context, prop models.PropertyInfo, question string, results []retrieve.Result) (*Result, error) {
	if len(results) == 0 {
		return &Result{Answer: noEvidenceAnswer, Evidence: []evidence.Item{}}, nil
	}
	items := evidence.FromResults(results)
	prompt := buildPrompt(prop, question, results)
	a.logger.Debug("generating answer",
		zap.String("question", question),
		zap.Int("chunks", len(results)),
	)
	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &Result{Answer: text, Evidence: items}, nil
}
