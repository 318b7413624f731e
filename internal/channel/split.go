package channel

import (
	"strings"
	"unicode/utf8"
)

// splitMessage splits a message into chunks that fit within maxLen bytes,
// preferring to cut on a newline.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}
		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(msg)
		}
		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}

// mentionID extracts U123 from "<@U123>" or "<@U123|name>".
func mentionID(arg string) (string, bool) {
	if !strings.HasPrefix(arg, "<@") || !strings.HasSuffix(arg, ">") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(arg, "<@"), ">")
	id = strings.TrimPrefix(id, "!") // Discord nickname mentions
	if i := strings.IndexByte(id, '|'); i >= 0 {
		id = id[:i]
	}
	return id, id != ""
}
