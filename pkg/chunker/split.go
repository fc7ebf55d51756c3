package chunker

import "strings"

// isHeading reports whether line is a markdown heading: one to six #'s
// followed by a space or end of line.
func isHeading(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	rest := strings.TrimLeft(trimmed, "#")
	if len(trimmed)-len(rest) > 6 {
		return false
	}
	return rest == "" || strings.HasPrefix(rest, " ")
}

// splitBlocks splits text into structural blocks: a markdown heading always
// starts a new block and a run of blank lines ends the current one.
// Separators stay attached to the preceding block, so concatenating the
// blocks yields the input unchanged.
func splitBlocks(text string) []string {
	if text == "" {
		return nil
	}

	var blocks []string
	start := 0
	pos := 0
	blankRun := false

	for pos < len(text) {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		var next int
		if lineEnd < 0 {
			lineEnd = len(text)
			next = lineEnd
		} else {
			lineEnd += pos
			next = lineEnd + 1
		}

		line := text[pos:lineEnd]
		blank := strings.TrimSpace(line) == ""

		if pos > start && (isHeading(line) || (blankRun && !blank)) {
			blocks = append(blocks, text[start:pos])
			start = pos
		}

		blankRun = blank
		pos = next
	}

	if start < len(text) {
		blocks = append(blocks, text[start:])
	}
	return blocks
}

// splitSentences splits s at sentence terminators (., !, ?) followed by
// whitespace. Trailing whitespace attaches to the preceding sentence, so
// concatenating the sentences yields the input unchanged.
func splitSentences(s string) []string {
	var sentences []string
	start := 0
	i := 0

	for i < len(s) {
		c := s[i]
		if c != '.' && c != '!' && c != '?' {
			i++
			continue
		}

		j := i + 1
		for j < len(s) && (s[j] == '.' || s[j] == '!' || s[j] == '?') {
			j++
		}

		if j < len(s) && !isSpaceByte(s[j]) {
			i = j
			continue
		}

		for j < len(s) && isSpaceByte(s[j]) {
			j++
		}
		sentences = append(sentences, s[start:j])
		start = j
		i = j
	}

	if start < len(s) {
		sentences = append(sentences, s[start:])
	}
	return sentences
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
