package agent

import "github.com/foliodocs/folio/pkg/vector"

// Trace message roles.
const (
	// RoleTask tags the retrieval task instruction.
	RoleTask = "task"

	// RoleTool tags the retrieval tool output (the evidence block).
	RoleTool = "tool"

	// RoleAssistant tags the final synthesized answer.
	RoleAssistant = "assistant"
)

// Message is one role-tagged step of a question's execution trace.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Citation points at a source document that grounded the answer.
type Citation struct {
	// Document is the document ID.
	Document string `json:"document"`

	// Source is the corpus-relative source path.
	Source string `json:"source"`

	// ChunkOrdinal is the ordinal of the document's highest-ranked chunk.
	ChunkOrdinal int `json:"chunk_ordinal"`
}

// Answer is the terminal result of one question.
type Answer struct {
	// Text is the synthesized answer.
	Text string `json:"text"`

	// Citations lists the distinct source documents behind the answer, in
	// rank order of first appearance. Empty when retrieval found nothing.
	Citations []Citation `json:"citations"`

	// Trace is the execution trace for the question, in order.
	Trace []Message `json:"trace"`
}

// citations collapses ranked matches to one citation per distinct document,
// keeping rank order of first appearance.
func citations(matches []vector.Match) []Citation {
	seen := make(map[string]bool, len(matches))

	var cites []Citation
	for _, m := range matches {
		if seen[m.DocumentID] {
			continue
		}
		seen[m.DocumentID] = true
		cites = append(cites, Citation{
			Document:     m.DocumentID,
			Source:       m.Source,
			ChunkOrdinal: m.Ordinal,
		})
	}

	return cites
}
