package signals

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
)

const (
	sentimentStep = 0.2
	// Replies slower than this are not counted as responses.
	maxResponseGap = 24 * time.Hour
	initiationGap  = 3 * time.Hour
)

// Sentiment labels.
const (
	VeryPositive = "very positive"
	Positive     = "positive"
	Neutral      = "neutral"
	Negative     = "negative"
	VeryNegative = "very negative"
)

// Balance labels.
const (
	Balanced        = "balanced"
	UserDominant    = "user-dominant"
	ContactDominant = "contact-dominant"
)

// MessageSignals is what one message contributes to the aggregate.
type MessageSignals struct {
	Sentiment float64
	Topics    []string
	Locale    []string
	// Keywords are the distinct lexicon entries the message matched.
	Keywords []string
	Emoji    int
	Question bool
	Script   string
}

// ResponseTime holds reply latency averages in minutes.
type ResponseTime struct {
	AverageMinutes        float64 `json:"averageMinutes"`
	UserAverageMinutes    float64 `json:"userAverageMinutes"`
	ContactAverageMinutes float64 `json:"contactAverageMinutes"`
	Samples               int     `json:"samples"`
}

// Initiations counts conversation starts per party.
type Initiations struct {
	User    int `json:"user"`
	Contact int `json:"contact"`
}

// TopicCount is a raw category hit count.
type TopicCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the aggregate over a whole message list.
type Summary struct {
	Messages        int
	UserMessages    int
	ContactMessages int
	Senders         []string

	Sentiment      float64
	SentimentLabel string

	ResponseTime ResponseTime
	Initiations  Initiations
	Balance      string
	BalanceRatio float64

	TopicCounts []TopicCount
	Topics      []TopicShare

	EmojiCount    int
	QuestionCount int
	LanguageMix   map[string]float64
	LocaleCues    map[string]int

	// LateNight counts messages sent between midnight and 5am.
	LateNight  int
	// ActiveDays is the number of distinct calendar days with messages.
	ActiveDays int

	// Mean message length in runes, per party.
	UserAverageLength    float64
	ContactAverageLength float64
	UserEmoji            int
	ContactEmoji         int
	UserQuestions        int
	ContactQuestions     int
}

type term struct {
	text   string
	phrase bool
}

type table struct {
	name  string
	terms []term
}

// Extractor computes lexicon signals. It is safe for concurrent use.
type Extractor struct {
	positive []term
	negative []term
	topics   []table
	locale   []table
}

// NewExtractor compiles a lexicon. A nil lexicon uses the defaults.
func NewExtractor(lex *Lexicon) *Extractor {
	if lex == nil {
		lex = DefaultLexicon()
	}
	e := &Extractor{
		positive: compileTerms(lex.Positive),
		negative: compileTerms(lex.Negative),
	}
	for _, t := range lex.Topics {
		e.topics = append(e.topics, table{name: t.Name, terms: compileTerms(t.Keywords)})
	}
	for _, t := range lex.Locale {
		e.locale = append(e.locale, table{name: t.Name, terms: compileTerms(t.Keywords)})
	}
	return e
}

// TopicNames returns the topic categories in table order.
func (e *Extractor) TopicNames() []string {
	names := make([]string, len(e.topics))
	for i, t := range e.topics {
		names[i] = t.name
	}
	return names
}

// Message scores a single message text.
func (e *Extractor) Message(text string) MessageSignals {
	words, padded := tokenize(text)
	seen := make(map[string]bool)
	var sig MessageSignals

	note := func(t term) {
		if !seen[t.text] {
			seen[t.text] = true
			sig.Keywords = append(sig.Keywords, t.text)
		}
	}

	pos, neg := 0, 0
	for _, t := range e.positive {
		if t.match(words, padded) {
			pos++
			note(t)
		}
	}
	for _, t := range e.negative {
		if t.match(words, padded) {
			neg++
			note(t)
		}
	}
	sig.Sentiment = round(clamp(float64(pos-neg)*sentimentStep, -1, 1), 2)

	for _, tb := range e.topics {
		if tb.matchAny(words, padded, note) {
			sig.Topics = append(sig.Topics, tb.name)
		}
	}
	for _, tb := range e.locale {
		if tb.matchAny(words, padded, note) {
			sig.Locale = append(sig.Locale, tb.name)
		}
	}

	sig.Emoji = CountEmoji(text)
	sig.Question = strings.Contains(text, "?")
	sig.Script = DominantScript(text)
	return sig
}

// Aggregate computes the summary for a chronologically ordered message list.
func (e *Extractor) Aggregate(msgs []chatlog.Message) *Summary {
	s := &Summary{
		Messages:    len(msgs),
		LanguageMix: make(map[string]float64),
		LocaleCues:  make(map[string]int),
	}

	topicHits := make(map[string]int)
	scripts := make(map[string]int)
	senders := make(map[string]bool)
	days := make(map[string]bool)
	withLetters := 0
	sentimentSum := 0.0
	var userLen, contactLen int

	var rtAll, rtUser, rtContact []float64

	for i, m := range msgs {
		sig := e.Message(m.Text)
		sentimentSum += sig.Sentiment

		if m.Sender != "" && !senders[m.Sender] {
			senders[m.Sender] = true
			s.Senders = append(s.Senders, m.Sender)
		}

		n := len([]rune(m.Text))
		if m.IsFromContact {
			s.ContactMessages++
			contactLen += n
			s.ContactEmoji += sig.Emoji
			if sig.Question {
				s.ContactQuestions++
			}
		} else {
			s.UserMessages++
			userLen += n
			s.UserEmoji += sig.Emoji
			if sig.Question {
				s.UserQuestions++
			}
		}

		s.EmojiCount += sig.Emoji
		if sig.Question {
			s.QuestionCount++
		}
		for _, t := range sig.Topics {
			topicHits[t]++
		}
		for _, l := range sig.Locale {
			s.LocaleCues[l]++
		}
		if sig.Script != "" {
			scripts[sig.Script]++
			withLetters++
		}
		if h := m.Timestamp.Hour(); h < 5 {
			s.LateNight++
		}
		days[m.Timestamp.Format("2006-01-02")] = true

		if i == 0 {
			s.initiate(m.IsFromContact)
			continue
		}
		prev := msgs[i-1]
		gap := m.Timestamp.Sub(prev.Timestamp)

		if gap >= initiationGap || !sameDay(prev.Timestamp, m.Timestamp) {
			s.initiate(m.IsFromContact)
		}

		if m.IsFromContact != prev.IsFromContact && gap >= 0 && gap < maxResponseGap {
			mins := gap.Minutes()
			rtAll = append(rtAll, mins)
			if m.IsFromContact {
				rtContact = append(rtContact, mins)
			} else {
				rtUser = append(rtUser, mins)
			}
		}
	}

	if s.Messages > 0 {
		s.Sentiment = round(sentimentSum/float64(s.Messages), 2)
	}
	s.SentimentLabel = SentimentLabel(s.Sentiment)

	s.ResponseTime = ResponseTime{
		AverageMinutes:        round(mean(rtAll), 1),
		UserAverageMinutes:    round(mean(rtUser), 1),
		ContactAverageMinutes: round(mean(rtContact), 1),
		Samples:               len(rtAll),
	}

	s.BalanceRatio, s.Balance = balance(s.UserMessages, s.ContactMessages)

	for _, name := range e.TopicNames() {
		s.TopicCounts = append(s.TopicCounts, TopicCount{Name: name, Count: topicHits[name]})
	}
	s.Topics = NormalizeTopics(s.TopicCounts)

	for script, n := range scripts {
		s.LanguageMix[script] = round(float64(n)/float64(withLetters), 2)
	}
	s.ActiveDays = len(days)
	if s.UserMessages > 0 {
		s.UserAverageLength = round(float64(userLen)/float64(s.UserMessages), 1)
	}
	if s.ContactMessages > 0 {
		s.ContactAverageLength = round(float64(contactLen)/float64(s.ContactMessages), 1)
	}
	return s
}

func (s *Summary) initiate(contact bool) {
	if contact {
		s.Initiations.Contact++
	} else {
		s.Initiations.User++
	}
}

// SentimentLabel bands a mean sentiment score.
func SentimentLabel(score float64) string {
	switch {
	case score >= 0.6:
		return VeryPositive
	case score >= 0.1:
		return Positive
	case score > -0.1:
		return Neutral
	case score > -0.6:
		return Negative
	default:
		return VeryNegative
	}
}

// balance returns user/contact as a percentage and its band. A side with no
// messages is treated as having one so the ratio stays finite.
func balance(user, contact int) (float64, string) {
	if user == 0 && contact == 0 {
		return 100, Balanced
	}
	ratio := float64(user) / math.Max(float64(contact), 1) * 100
	ratio = round(ratio, 1)
	switch {
	case ratio < 80:
		return ratio, ContactDominant
	case ratio > 120:
		return ratio, UserDominant
	default:
		return ratio, Balanced
	}
}

func (t term) match(words map[string]bool, padded string) bool {
	if t.phrase {
		return strings.Contains(padded, " "+t.text+" ")
	}
	return words[t.text]
}

func (tb table) matchAny(words map[string]bool, padded string, note func(term)) bool {
	hit := false
	for _, t := range tb.terms {
		if t.match(words, padded) {
			hit = true
			note(t)
		}
	}
	return hit
}

func compileTerms(keywords []string) []term {
	seen := make(map[string]bool)
	var out []term
	for _, k := range keywords {
		norm := strings.Join(splitWords(k), " ")
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, term{text: norm, phrase: strings.Contains(norm, " ")})
	}
	return out
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// tokenize returns the word set and a space-padded word string for phrase lookups.
func tokenize(text string) (map[string]bool, string) {
	list := splitWords(text)
	words := make(map[string]bool, len(list))
	for _, w := range list {
		words[w] = true
	}
	return words, " " + strings.Join(list, " ") + " "
}

// CountEmoji counts code points in the pictograph, emoticon, transport,
// supplemental, dingbat and regional-indicator blocks.
func CountEmoji(text string) int {
	n := 0
	for _, r := range text {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F6FF,
		r >= 0x1F900 && r <= 0x1F9FF,
		r >= 0x1FA70 && r <= 0x1FAFF,
		r >= 0x2600 && r <= 0x27BF,
		r >= 0x1F1E6 && r <= 0x1F1FF,
		r == 0x2B50, r == 0x2B55, r == 0x203C, r == 0x2049:
		return true
	}
	return false
}

var scriptTables = []struct {
	name  string
	table *unicode.RangeTable
}{
	{"latin", unicode.Latin},
	{"devanagari", unicode.Devanagari},
	{"arabic", unicode.Arabic},
	{"cyrillic", unicode.Cyrillic},
	{"han", unicode.Han},
	{"hangul", unicode.Hangul},
	{"kana", unicode.Hiragana},
	{"kana", unicode.Katakana},
	{"bengali", unicode.Bengali},
	{"tamil", unicode.Tamil},
	{"greek", unicode.Greek},
	{"hebrew", unicode.Hebrew},
	{"thai", unicode.Thai},
}

// DominantScript returns the writing system most letters of text belong to,
// or "" when it has no letters.
func DominantScript(text string) string {
	counts := make(map[string]int)
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		name := "other"
		for _, st := range scriptTables {
			if unicode.Is(st.table, r) {
				name = st.name
				break
			}
		}
		counts[name]++
	}
	if len(counts) == 0 {
		return ""
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	best := names[0]
	for _, name := range names[1:] {
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
