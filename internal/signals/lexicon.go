package signals

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Keywords is one named keyword table, a topic category or a locale cue set.
type Keywords struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
}

// Lexicon holds the word lists the extractor matches against. Topic order is
// the table order used to break ties in distributions.
type Lexicon struct {
	Positive []string   `toml:"positive"`
	Negative []string   `toml:"negative"`
	Topics   []Keywords `toml:"topics"`
	Locale   []Keywords `toml:"locale"`
}

// DefaultLexicon returns a fresh copy of the built-in lexicon.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Positive: []string{
			"love", "happy", "great", "awesome", "amazing", "good", "nice", "thanks", "thank",
			"wonderful", "excited", "glad", "fun", "beautiful", "perfect", "best", "proud",
			"congrats", "congratulations", "haha", "lol", "yay", "sweet", "cute", "enjoy",
			"enjoyed", "lovely", "fantastic", "excellent", "appreciate", "cool", "khush", "mast",
		},
		Negative: []string{
			"sad", "angry", "hate", "bad", "terrible", "awful", "upset", "sorry", "annoyed",
			"tired", "worried", "stress", "stressed", "hurt", "cry", "crying", "lonely", "sick",
			"fight", "disappointed", "frustrated", "mad", "worst", "ugh", "anxious", "scared",
			"udaas", "pareshan",
		},
		Topics: []Keywords{
			{Name: "Work", Keywords: []string{"work", "job", "office", "boss", "meeting", "project", "deadline", "client", "career", "colleague", "shift", "interview", "promotion"}},
			{Name: "Family", Keywords: []string{"mom", "mum", "dad", "mother", "father", "sister", "brother", "family", "parents", "kids", "son", "daughter", "grandma", "grandpa", "aunt", "uncle", "cousin", "mummy", "papa"}},
			{Name: "Health", Keywords: []string{"doctor", "hospital", "medicine", "gym", "workout", "health", "pain", "fever", "appointment", "headache", "diet", "exercise", "sick"}},
			{Name: "Social", Keywords: []string{"party", "friends", "friend", "drinks", "hangout", "birthday", "wedding", "club", "bar", "catch up"}},
			{Name: "Travel", Keywords: []string{"trip", "flight", "travel", "vacation", "holiday", "airport", "hotel", "beach", "train", "visa", "passport", "road trip"}},
			{Name: "Plans", Keywords: []string{"tomorrow", "tonight", "weekend", "plan", "plans", "schedule", "next week", "let's", "lets", "dinner", "reservation"}},
			{Name: "Emotions", Keywords: []string{"feel", "feeling", "feelings", "miss", "emotional", "heart", "care", "hug", "love"}},
			{Name: "Hobbies", Keywords: []string{"movie", "music", "game", "games", "book", "reading", "cooking", "football", "cricket", "painting", "guitar", "netflix", "hiking", "photography"}},
			{Name: "Financial", Keywords: []string{"money", "pay", "paid", "rent", "bank", "salary", "bills", "budget", "loan", "expensive", "savings", "invest", "price"}},
			{Name: "Education", Keywords: []string{"exam", "exams", "school", "college", "university", "class", "homework", "study", "studying", "teacher", "course", "assignment", "grades"}},
		},
		Locale: []Keywords{
			{Name: "Hinglish greetings", Keywords: []string{"namaste", "kaise ho", "kaisi ho", "kya haal", "haanji", "theek", "achha", "accha"}},
			{Name: "Hinglish endearments", Keywords: []string{"jaan", "jaanu", "babu", "shona", "sweetu", "pyaar", "meri jaan"}},
		},
	}
}

// LoadLexicon reads a TOML override file and merges it into the defaults.
// Tables with a known name extend that table; new names are appended.
func LoadLexicon(path string) (*Lexicon, error) {
	lex := DefaultLexicon()
	if path == "" {
		return lex, nil
	}

	var extra Lexicon
	if _, err := toml.DecodeFile(path, &extra); err != nil {
		return nil, fmt.Errorf("decode lexicon %s: %w", path, err)
	}
	lex.Merge(&extra)
	return lex, nil
}

// Merge folds other into l.
func (l *Lexicon) Merge(other *Lexicon) {
	l.Positive = append(l.Positive, other.Positive...)
	l.Negative = append(l.Negative, other.Negative...)
	l.Topics = mergeTables(l.Topics, other.Topics)
	l.Locale = mergeTables(l.Locale, other.Locale)
}

// TopicNames returns the topic categories in table order.
func (l *Lexicon) TopicNames() []string {
	names := make([]string, len(l.Topics))
	for i, t := range l.Topics {
		names[i] = t.Name
	}
	return names
}

func mergeTables(base, extra []Keywords) []Keywords {
	for _, e := range extra {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		found := false
		for i := range base {
			if strings.EqualFold(base[i].Name, name) {
				base[i].Keywords = append(base[i].Keywords, e.Keywords...)
				found = true
				break
			}
		}
		if !found {
			base = append(base, Keywords{Name: name, Keywords: e.Keywords})
		}
	}
	return base
}
