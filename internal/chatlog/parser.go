package chatlog

import (
	"regexp"
	"strconv"
	"strings"
)

// clockPattern matches H:MM, H:MM:SS and an optional 12-hour suffix,
// including the narrow no-break space newer exports put before it.
const clockPattern = `\d{1,2}:\d{2}(?::\d{2})?(?:[ \x{202F}\x{00A0}]?[AaPp]\.?[Mm]\.?)?`

// Parser reads one specific header-line shape. Submatches of header are
// date, clock, sender and body, in that order.
type Parser struct {
	ID     string
	Format Format

	header *regexp.Regexp
	// system matches sender-less notice lines that must not become continuations.
	system *regexp.Regexp
	order  DateOrder
	// resolveOrder lets the file's own dates choose between day-first and month-first.
	resolveOrder bool
	selfAliases  []string
	clean        func(string) string
}

// WhatsAppParsers returns the WhatsApp ensemble in registration order.
func WhatsAppParsers() []*Parser {
	self := []string{"you"}
	return []*Parser{
		{
			ID:           "whatsapp-standard",
			Format:       FormatWhatsApp,
			header:       regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}),? (` + clockPattern + `) - ([^:]+?): ?(.*)$`),
			system:       regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4},? ` + clockPattern + ` - [^:]*$`),
			order:        MonthFirst,
			resolveOrder: true,
			selfAliases:  self,
		},
		{
			ID:          "whatsapp-international",
			Format:      FormatWhatsApp,
			header:      regexp.MustCompile(`^(\d{2}[/.]\d{2}[/.]\d{4}), (\d{2}:\d{2}) - ([^:]+?): ?(.*)$`),
			system:      regexp.MustCompile(`^\d{2}[/.]\d{2}[/.]\d{4}, \d{2}:\d{2} - [^:]*$`),
			order:       DayFirst,
			selfAliases: self,
		},
		{
			ID:          "whatsapp-sample",
			Format:      FormatWhatsApp,
			header:      regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2}), (\d{1,2}:\d{2}[ \x{202F}][AP]M) - ([^:]+?): ?(.*)$`),
			system:      regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2}, \d{1,2}:\d{2}[ \x{202F}][AP]M - [^:]*$`),
			order:       MonthFirst,
			selfAliases: self,
		},
		{
			ID:           "whatsapp-ios",
			Format:       FormatWhatsApp,
			header:       regexp.MustCompile(`^\[(\d{1,2}[/.]\d{1,2}[/.]\d{2,4}),? (` + clockPattern + `)\] ([^:]+?): ?(.*)$`),
			system:       regexp.MustCompile(`^\[\d{1,2}[/.]\d{1,2}[/.]\d{2,4},? ` + clockPattern + `\] [^:]*$`),
			order:        DayFirst,
			resolveOrder: true,
			selfAliases:  self,
		},
	}
}

// IMessageParsers returns the iMessage ensemble in registration order.
func IMessageParsers() []*Parser {
	self := []string{"you", "me"}
	return []*Parser{
		{
			ID:          "imessage-csv",
			Format:      FormatIMessage,
			header:      regexp.MustCompile(`^"?(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2})"?,("(?:[^"]|"")*"|[^,]*),(.*)$`),
			order:       YearFirst,
			selfAliases: self,
			clean:       unquoteCSV,
		},
		{
			ID:          "imessage-tsv",
			Format:      FormatIMessage,
			header:      regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2})\t([^\t]*)\t(.*)$`),
			order:       YearFirst,
			selfAliases: self,
		},
	}
}

// ParsersFor returns the ensemble registered for a format.
func ParsersFor(f Format) []*Parser {
	switch f {
	case FormatWhatsApp:
		return WhatsAppParsers()
	case FormatIMessage:
		return IMessageParsers()
	default:
		return nil
	}
}

// Parse runs the parser over pre-split lines. It holds no state between calls.
func (p *Parser) Parse(lines []string, contact string, norm *Normalizer) Candidate {
	order := p.order
	if p.resolveOrder {
		order = p.fileOrder(lines)
	}

	senders := newSenderResolver(contact, p.selfAliases)
	acc := newAccumulator(p.clean)

	for _, raw := range lines {
		line := strings.TrimLeft(raw, "\u200e\ufeff")

		m := p.header.FindStringSubmatch(line)
		if m == nil {
			if p.system != nil && p.system.MatchString(line) {
				acc.skip()
				continue
			}
			acc.continueWith(raw)
			continue
		}

		sender := strings.TrimSpace(unquoteCSV(m[3]))
		body := stripEdited(m[4])
		if isSystemSender(sender) || isNoise(body) || isNoise(unquoteCSV(body)) {
			acc.skip()
			continue
		}

		ts, ok := norm.Normalize(m[1], m[2], order)
		acc.start(Message{
			Text:              body,
			Sender:            sender,
			IsFromContact:     senders.isContact(sender),
			Timestamp:         ts,
			TimestampFallback: !ok,
		})
	}

	msgs := acc.finish()
	// Only fallbacks on messages that survived count.
	fallbacks := 0
	for _, m := range msgs {
		if m.TimestampFallback {
			fallbacks++
		}
	}
	return Candidate{ParserID: p.ID, Messages: msgs, Fallbacks: fallbacks}
}

// fileOrder picks day-first or month-first from the first header whose date
// has a field above 12. Files where every date is ambiguous keep the default.
func (p *Parser) fileOrder(lines []string) DateOrder {
	for _, raw := range lines {
		m := p.header.FindStringSubmatch(strings.TrimLeft(raw, "\u200e\ufeff"))
		if m == nil {
			continue
		}
		fields := strings.FieldsFunc(m[1], func(r rune) bool { return r == '/' || r == '.' })
		if len(fields) != 3 {
			continue
		}
		first, err1 := strconv.Atoi(fields[0])
		second, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		switch {
		case first > 12 && second <= 12:
			return DayFirst
		case second > 12 && first <= 12:
			return MonthFirst
		}
	}
	return p.order
}

func unquoteCSV(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 1 && s[0] == '"' {
		s = strings.TrimPrefix(s, `"`)
		s = strings.TrimSuffix(s, `"`)
		s = strings.ReplaceAll(s, `""`, `"`)
	}
	return s
}
