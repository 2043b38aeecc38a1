package chatlog

import (
	"regexp"
	"strings"
)

// sampleSize is how much of the content the detector looks at.
const sampleSize = 1000

var (
	whatsappAnchor    = regexp.MustCompile(`(?m)^\d{1,2}/\d{1,2}/\d{2,4},? \d{1,2}:\d{2}(?::\d{2})?(?:\s?[AaPp]\.?[Mm]\.?)? - `)
	whatsappIOSAnchor = regexp.MustCompile(`(?m)^\[\d{1,2}/\d{1,2}/\d{2,4},? \d{1,2}:\d{2}(?::\d{2})?(?:\s?[AaPp]\.?[Mm]\.?)?\] `)
	imessageAnchor    = regexp.MustCompile(`(?m)^"?\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}"?[,\t]`)
)

// Detect classifies content as one of the known export formats. A recognised
// hint wins over detection.
func Detect(content, hint string) Format {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case string(FormatWhatsApp):
		return FormatWhatsApp
	case string(FormatIMessage):
		return FormatIMessage
	}

	sample := content
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	sample = strings.TrimPrefix(sample, "\ufeff")

	switch {
	case whatsappAnchor.MatchString(sample), whatsappIOSAnchor.MatchString(sample):
		return FormatWhatsApp
	case imessageAnchor.MatchString(sample):
		return FormatIMessage
	default:
		return FormatUnknown
	}
}
