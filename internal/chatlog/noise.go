package chatlog

import "strings"

// noiseBodies are placeholder bodies that carry no conversation content.
var noiseBodies = map[string]bool{
	"<media omitted>":          true,
	"image omitted":            true,
	"video omitted":            true,
	"audio omitted":            true,
	"sticker omitted":          true,
	"gif omitted":              true,
	"document omitted":         true,
	"contact card omitted":     true,
	"this message was deleted": true,
	"you deleted this message": true,
	"missed voice call":        true,
	"missed video call":        true,
	"null":                     true,
}

// noiseFragments mark system notices that may be embedded in longer text.
var noiseFragments = []string{
	"messages and calls are end-to-end encrypted",
	"you blocked this contact",
	"you unblocked this contact",
	"changed their phone number",
	"security code changed",
	"security code with",
	"changed the subject",
	"changed this group's subject",
	"changed the group description",
	"changed this group's description",
	"deleted the group description",
	"changed this group's icon",
	"changed the group icon",
	"deleted this group's icon",
}

const editedMarker = "<This message was edited>"

func isNoise(body string) bool {
	b := strings.ToLower(strings.TrimSpace(strings.Trim(body, "\u200e")))
	if b == "" {
		return false
	}
	if noiseBodies[b] {
		return true
	}
	for _, f := range noiseFragments {
		if strings.Contains(b, f) {
			return true
		}
	}
	return false
}

// isSystemSender reports whether a header's sender field is really the start
// of a notice whose own text contained a colon, e.g. "Alice changed the subject to: Trip".
func isSystemSender(sender string) bool {
	s := strings.ToLower(sender)
	for _, f := range noiseFragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func stripEdited(body string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(body), editedMarker))
}
