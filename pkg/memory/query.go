package memory

import (
	"fmt"
	"strings"

	"github.com/foliodocs/folio/pkg/utils"
)

const (
	// maxContextMessages is how many trailing messages are folded into an
	// enhanced query.
	maxContextMessages = 3

	// maxMessageChars is the per-message truncation length.
	maxMessageChars = 150
)

const enhancedQueryTemplate = `Previous conversation context:
%s

Current question: %s

Please answer the current question considering the conversation context above. If the current question references something from the previous conversation, use that context to provide a more complete answer.`

// EnhanceQuery folds recent conversation history into a retrieval query so
// follow-up questions resolve references to earlier turns. Histories shorter
// than two messages return the question unchanged.
func EnhanceQuery(history []Message, question string) string {
	if len(history) < 2 {
		return question
	}

	recent := history
	if len(recent) > maxContextMessages {
		recent = recent[len(recent)-maxContextMessages:]
	}

	parts := make([]string, 0, len(recent))
	for _, msg := range recent {
		parts = append(parts, msg.Role+": "+utils.Truncate(msg.Content, maxMessageChars))
	}

	return fmt.Sprintf(enhancedQueryTemplate, strings.Join(parts, "\n"), question)
}
