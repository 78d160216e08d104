package telegram

import "strings"

// maxTelegramMessage is the chunk size for outgoing messages. Telegram's
// hard limit is 4096; 4000 leaves room for formatting overhead.
const maxTelegramMessage = 4000

// splitMessage splits a long message into chunks that fit within Telegram's
// limit, preferring natural boundaries: paragraphs, then sentences, then
// words.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	remaining := text

	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			chunks = append(chunks, remaining)
			break
		}

		splitAt := findSplitPoint(remaining, maxLen)
		chunks = append(chunks, strings.TrimSpace(remaining[:splitAt]))
		remaining = strings.TrimSpace(remaining[splitAt:])
	}

	return chunks
}

// findSplitPoint finds the best position to split text within maxLen.
func findSplitPoint(text string, maxLen int) int {
	if len(text) <= maxLen {
		return len(text)
	}

	searchArea := text[:maxLen]

	// Paragraph boundary first.
	if idx := strings.LastIndex(searchArea, "\n\n"); idx > maxLen/2 {
		return idx + 2
	}

	if idx := strings.LastIndex(searchArea, "\n"); idx > maxLen/2 {
		return idx + 1
	}

	for _, sep := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(searchArea, sep); idx > maxLen/2 {
			return idx + len(sep)
		}
	}

	if idx := strings.LastIndex(searchArea, " "); idx > maxLen/2 {
		return idx + 1
	}

	// Hard split as a last resort.
	return maxLen
}
