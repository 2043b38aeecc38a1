package chatlog

import (
	"strconv"
	"strings"
	"time"
)

// DateOrder fixes how the fields of a date token are read.
type DateOrder int

const (
	MonthFirst DateOrder = iota // 12/31/20
	DayFirst                    // 31/12/20
	YearFirst                   // 2020-12-31
)

func (o DateOrder) String() string {
	switch o {
	case MonthFirst:
		return "month-first"
	case DayFirst:
		return "day-first"
	case YearFirst:
		return "year-first"
	default:
		return "unknown"
	}
}

// Normalizer turns export date/time tokens into instants. It never fails:
// when a token cannot be read it returns the current instant and false so the
// caller can flag or discard the message.
type Normalizer struct {
	Location *time.Location
	Now      func() time.Time
}

// NewNormalizer returns a normalizer reading wall-clock times in loc (UTC when nil).
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Location: loc, Now: time.Now}
}

// NormalizeMonthFirst reads dates such as 12/31/20.
func (n *Normalizer) NormalizeMonthFirst(date, clock string) (time.Time, bool) {
	return n.Normalize(date, clock, MonthFirst)
}

// NormalizeDayFirst reads dates such as 31/12/2020 or 31.12.20.
func (n *Normalizer) NormalizeDayFirst(date, clock string) (time.Time, bool) {
	return n.Normalize(date, clock, DayFirst)
}

// NormalizeISO reads dates such as 2020-12-31.
func (n *Normalizer) NormalizeISO(date, clock string) (time.Time, bool) {
	return n.Normalize(date, clock, YearFirst)
}

// Normalize combines a date token read in the given order with a clock token.
func (n *Normalizer) Normalize(date, clock string, order DateOrder) (time.Time, bool) {
	year, month, day, ok := parseDate(date, order)
	if !ok {
		return n.fallback(), false
	}
	hour, minute, second, ok := parseClock(clock)
	if !ok {
		return n.fallback(), false
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, n.location()), true
}

func (n *Normalizer) location() *time.Location {
	if n.Location == nil {
		return time.UTC
	}
	return n.Location
}

func (n *Normalizer) fallback() time.Time {
	var now time.Time
	if n.Now != nil {
		now = n.Now()
	}
	if now.IsZero() {
		now = time.Now()
	}
	return now.In(n.location())
}

func parseDate(token string, order DateOrder) (year, month, day int, ok bool) {
	parts := strings.FieldsFunc(strings.TrimSpace(token), func(r rune) bool {
		return r == '/' || r == '.' || r == '-'
	})
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	var yStr, mStr, dStr string
	switch order {
	case MonthFirst:
		mStr, dStr, yStr = parts[0], parts[1], parts[2]
	case DayFirst:
		dStr, mStr, yStr = parts[0], parts[1], parts[2]
	case YearFirst:
		yStr, mStr, dStr = parts[0], parts[1], parts[2]
	default:
		return 0, 0, 0, false
	}

	year, ok = parseYear(yStr)
	if !ok {
		return 0, 0, 0, false
	}
	if month, ok = atoiRange(mStr, 1, 12); !ok {
		return 0, 0, 0, false
	}
	if day, ok = atoiRange(dStr, 1, daysIn(time.Month(month), year)); !ok {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

// parseYear accepts 2-digit years (read as 20yy) and 4-digit years.
func parseYear(s string) (int, bool) {
	switch len(s) {
	case 2:
		y, ok := atoiRange(s, 0, 99)
		return 2000 + y, ok
	case 4:
		return atoiRange(s, 1, 9999)
	default:
		return 0, false
	}
}

func parseClock(token string) (hour, minute, second int, ok bool) {
	s := strings.ToLower(strings.TrimSpace(token))
	s = strings.NewReplacer("\u202f", " ", "\u00a0", " ", ".", "").Replace(s)

	meridiem := ""
	switch {
	case strings.HasSuffix(s, "am"):
		meridiem, s = "am", strings.TrimSuffix(s, "am")
	case strings.HasSuffix(s, "pm"):
		meridiem, s = "pm", strings.TrimSuffix(s, "pm")
	}
	s = strings.TrimSpace(s)

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}

	if meridiem == "" {
		if hour, ok = atoiRange(parts[0], 0, 23); !ok {
			return 0, 0, 0, false
		}
	} else {
		if hour, ok = atoiRange(parts[0], 1, 12); !ok {
			return 0, 0, 0, false
		}
		switch {
		case meridiem == "am" && hour == 12:
			hour = 0
		case meridiem == "pm" && hour != 12:
			hour += 12
		}
	}
	if minute, ok = atoiRange(parts[1], 0, 59); !ok {
		return 0, 0, 0, false
	}
	if len(parts) == 3 {
		if second, ok = atoiRange(parts[2], 0, 59); !ok {
			return 0, 0, 0, false
		}
	}
	return hour, minute, second, true
}

func atoiRange(s string, lo, hi int) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
