package chatlog

import "strings"

// accumulator folds export lines into messages. A header line starts a new
// message, a noise header finalizes without starting one, and any other line
// continues the message under construction (or the last finalized one).
type accumulator struct {
	msgs    []Message
	current *Message
	clean   func(string) string
	// lastRaw is the uncleaned text of the last finalized message.
	lastRaw string
}

func newAccumulator(clean func(string) string) *accumulator {
	if clean == nil {
		clean = func(s string) string { return s }
	}
	return &accumulator{clean: clean}
}

func (a *accumulator) start(m Message) {
	a.flush()
	a.current = &m
}

func (a *accumulator) skip() {
	a.flush()
}

func (a *accumulator) continueWith(line string) {
	switch {
	case a.current != nil:
		a.current.Text += "\n" + line
	case len(a.msgs) > 0:
		if strings.TrimSpace(line) == "" {
			return
		}
		a.lastRaw += "\n" + line
		a.msgs[len(a.msgs)-1].Text = a.cleanText(a.lastRaw)
	}
	// Lines before the first header are export preamble.
}

func (a *accumulator) flush() {
	if a.current == nil {
		return
	}
	m := *a.current
	a.current = nil

	raw := m.Text
	m.Text = a.cleanText(raw)
	if m.Text == "" {
		return
	}
	a.lastRaw = raw
	a.msgs = append(a.msgs, m)
}

func (a *accumulator) cleanText(raw string) string {
	return strings.TrimRight(strings.TrimLeft(a.clean(raw), "\n"), " \t\n")
}

func (a *accumulator) finish() []Message {
	a.flush()
	return a.msgs
}
