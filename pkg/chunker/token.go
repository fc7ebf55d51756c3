package chunker

import "unicode"

// CountTokens approximates the token count of s: each run of letters and
// digits counts as one token, and every other non-space rune counts as its
// own token. The heuristic is deterministic and needs no model tokenizer.
func CountTokens(s string) int {
	tokens := 0
	inWord := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				tokens++
				inWord = true
			}
		case unicode.IsSpace(r):
			inWord = false
		default:
			tokens++
			inWord = false
		}
	}
	return tokens
}

// tokenStarts returns the byte offset where each token begins.
func tokenStarts(s string) []int {
	var starts []int
	inWord := false
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				starts = append(starts, i)
				inWord = true
			}
		case unicode.IsSpace(r):
			inWord = false
		default:
			starts = append(starts, i)
			inWord = false
		}
	}
	return starts
}

// headTokens returns the prefix of s containing at most n tokens.
func headTokens(s string, n int) string {
	if n <= 0 {
		return ""
	}
	starts := tokenStarts(s)
	if len(starts) <= n {
		return s
	}
	return s[:starts[n]]
}

// tailTokens returns the suffix of s containing at most n tokens.
func tailTokens(s string, n int) string {
	if n <= 0 {
		return ""
	}
	starts := tokenStarts(s)
	if len(starts) <= n {
		return s
	}
	return s[starts[len(starts)-n]:]
}

// hardSplit slices s into pieces of at most budget tokens each, cutting at
// token boundaries so concatenating the pieces yields s unchanged.
func hardSplit(s string, budget int) []string {
	if budget < 1 {
		budget = 1
	}

	starts := tokenStarts(s)
	if len(starts) <= budget {
		return []string{s}
	}

	var pieces []string
	prev := 0
	for next := budget; next < len(starts); next += budget {
		pieces = append(pieces, s[prev:starts[next]])
		prev = starts[next]
	}
	return append(pieces, s[prev:])
}
