package agent

import (
	"fmt"
	"strings"

	"github.com/foliodocs/folio/pkg/vector"
)

// retrieveInstruction is the task instruction recorded at the head of the
// trace; %s is the retrieval query.
const retrieveInstruction = "Find relevant information in the indexed documents for the query: '%s'."

// noEvidenceText is the tool output when retrieval returns nothing.
const noEvidenceText = "No relevant documents found for this query."

const groundedInstructions = `You are an expert analyst who writes clear, professional answers from retrieved document context.

Use ONLY the provided context to answer; never add outside knowledge. Start with the most direct answer to the question, then supporting detail as the content requires. Cite sources naturally in prose, for example "According to <source>, ...". If the context is insufficient, say clearly what information is missing.`

const noContextInstructions = `You are an expert analyst answering a question for which the document index returned no relevant material.

Say clearly that the indexed documents contain no relevant material for this question, then answer from general knowledge if you can. Do not cite any sources.`

const conversationGuidance = `

This question is part of an ongoing conversation and may reference earlier turns. Use the conversation context included with the question to keep the answer coherent with the discussion so far.`

// evidenceBlock renders ranked matches as the retrieval tool output: chunks
// numbered from 1 in rank order, each with its source, optional context
// blurb, and content.
func evidenceBlock(matches []vector.Match) string {
	if len(matches) == 0 {
		return noEvidenceText
	}

	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- Chunk %d ---\n", i+1)
		fmt.Fprintf(&b, "Source: %s\n", m.Source)
		if m.Context != "" {
			fmt.Fprintf(&b, "Context: %s\n", m.Context)
		}
		fmt.Fprintf(&b, "Content: %s\n", m.Text)
	}

	return b.String()
}

// synthesisSystem builds the system prompt for the synthesis call.
func synthesisSystem(grounded, conversational bool) string {
	var b strings.Builder

	if grounded {
		b.WriteString(groundedInstructions)
	} else {
		b.WriteString(noContextInstructions)
	}

	if conversational {
		b.WriteString(conversationGuidance)
	}

	return b.String()
}

// synthesisPrompt builds the user prompt for the synthesis call.
func synthesisPrompt(question, evidence string, grounded bool) string {
	var b strings.Builder

	if grounded {
		b.WriteString("Context:\n")
		b.WriteString(evidence)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)

	return b.String()
}
