package answer

import (
	"fmt"
	"strings"

	"github.com/parcelmind/regsearch/internal/evidence"
	"github.com/parcelmind/regsearch/internal/models"
	"github.com/parcelmind/regsearch/internal/retrieve"
)

const systemPrompt = `You are a regulation Q&A assistant. Answer the user's question using ONLY the provided property information and regulation excerpts.

RULES:
1. Use ONLY the provided regulation text. Do not use external knowledge.
2. For every claim or requirement you state, cite the source: file name, page number, and line range (e.g. "Source: SF_Zoning.pdf, Page 10, Lines 1-15").
3. If the answer is not in the provided text, say "NOT FOUND in the provided regulations" for that part.
4. Do not give legal advice; only summarize what the regulations state.
5. Be specific: mention exact numbers (lot size, setbacks, etc.) and cite where they come from.`

// buildPrompt assembles the full generation prompt from property context, the
// user question, and the retrieved excerpts with their source citations.
func buildPrompt(prop models.PropertyInfo, question string, results []retrieve.Result) string {
	var excerpts strings.Builder
	for i, res := range results {
		fmt.Fprintf(&excerpts, "\n\n--- Source %d ---\n", i+1)
		fmt.Fprintf(&excerpts, "Source file: %s\n", evidence.SourceFile(res.Chunk.Regulation))
		fmt.Fprintf(&excerpts, "Page: %d-%d\n", res.Chunk.PageStart, res.Chunk.PageEnd)
		fmt.Fprintf(&excerpts, "Lines: %d-%d\n", res.Chunk.LineStart, res.Chunk.LineEnd)
		fmt.Fprintf(&excerpts, "Text:\n%s\n", res.Chunk.Text)
	}

	userPrompt := fmt.Sprintf(`Property information:
- Address: %s
- City: %s
- Zoning: %s
- Lot size: %d sqft
- Existing units: %d

User question: %s

Relevant regulation excerpts (with source file, page, and line info):
%s

Provide a clear answer that:
1. Directly addresses the user's question.
2. Cites source file name, page, and line numbers for every factual claim.
3. Notes when information is missing from the provided excerpts.`,
		orUnknown(prop.Address), orUnknown(prop.City), orUnknown(prop.Zoning),
		prop.LotSizeSqft, prop.ExistingUnits, question, excerpts.String())

	return systemPrompt + "\n\n" + userPrompt
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
