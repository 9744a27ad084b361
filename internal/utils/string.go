package utils

import (
	"regexp"
	"strings"
)

var subjectPrefixRe = regexp.MustCompile(`(?i)^\s*(re|fwd?|aw|sv)(\[\d+\])?\s*:\s*`)

// NormalizeEmailSubject strips a leading Re:/Fwd:/Fw: chain, including
// localized variants (Aw: in German, Sv: in Swedish), repeatedly, so
// "Re: Fwd: hello" and "Sv: Aw: hello" both normalize to "hello".
func NormalizeEmailSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for {
		stripped := subjectPrefixRe.ReplaceAllString(subject, "")
		stripped = strings.TrimSpace(stripped)
		if stripped == subject {
			return subject
		}
		subject = stripped
	}
}

func NormalizeMessageID(messageID string) string {
	messageID = strings.TrimSpace(messageID)
	messageID = strings.TrimPrefix(messageID, "<")
	messageID = strings.TrimSuffix(messageID, ">")
	return messageID
}
