package chatlog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// minPhoneDigits is the shortest digit run treated as a phone number.
const minPhoneDigits = 7

// senderResolver decides whether a header's sender is the contact. It is
// stateful (it remembers the contact's display name once seen) and belongs to
// a single parser run.
type senderResolver struct {
	fold     cases.Caser
	self     map[string]bool
	contact  string
	digits   string
	observed string
}

func newSenderResolver(contact string, selfAliases []string) *senderResolver {
	r := &senderResolver{
		fold: cases.Fold(),
		self: make(map[string]bool, len(selfAliases)),
	}
	for _, a := range selfAliases {
		r.self[r.key(a)] = true
	}
	if contact = strings.TrimSpace(contact); contact != "" {
		r.contact = r.key(contact)
		if d := digitsOf(contact); len(d) >= minPhoneDigits {
			r.digits = d
		}
	}
	return r
}

func (r *senderResolver) key(name string) string {
	name = strings.TrimFunc(name, func(c rune) bool {
		return unicode.IsSpace(c) || c == '~' || c == '\u200e' || c == '\u202a' || c == '\u202c'
	})
	return r.fold.String(name)
}

func (r *senderResolver) isContact(sender string) bool {
	k := r.key(sender)
	if k == "" || r.self[k] {
		return false
	}
	if r.observed != "" && k == r.observed {
		return true
	}

	if r.contact == "" {
		// Two-party chat without an identifier: the first other sender is the contact.
		if r.observed == "" {
			r.observed = k
			return true
		}
		return false
	}

	if k == r.contact || r.phoneMatches(sender) {
		r.observed = k
		return true
	}
	return false
}

func (r *senderResolver) phoneMatches(sender string) bool {
	if r.digits == "" {
		return false
	}
	d := digitsOf(sender)
	if len(d) < minPhoneDigits {
		return false
	}
	return strings.HasSuffix(d, r.digits) || strings.HasSuffix(r.digits, d)
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
