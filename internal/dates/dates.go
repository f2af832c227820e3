// Package dates parses front matter date values.
//
// Formats are written with date-fns style tokens (yyyy-MM-dd) because that is
// what content authors configure; they are translated to Go layouts.
package dates

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/starford/pageindex/internal/metadata"
)

// tokens is ordered longest first so that "yyyy" wins over "yy".
var tokens = []struct {
	token  string
	layout string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"SSS", "000"},
	{"a", "PM"},
	{"XXX", "Z07:00"},
	{"xxx", "-07:00"},
	{"xx", "-0700"},
	{"X", "Z07"},
}

// Layout translates a date-fns style format into a Go time layout.
// Text between single quotes is copied literally.
func Layout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '\'' {
			end := strings.IndexByte(format[i+1:], '\'')
			if end < 0 {
				b.WriteString(format[i+1:])
				break
			}
			b.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, t := range tokens {
			if strings.HasPrefix(format[i:], t.token) {
				b.WriteString(t.layout)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}

// Parse interprets v as a date. Strings are tried against format first and
// then against the common layouts cast understands. Integers are epoch
// milliseconds.
func Parse(v metadata.Value, format string) (time.Time, bool) {
	switch v.Kind() {
	case metadata.KindTime:
		t, _ := v.Time()
		return t, !t.IsZero()
	case metadata.KindInt:
		n, err := cast.ToInt64E(v.Interface())
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(n), true
	case metadata.KindString:
		s, _ := v.Str()
		return ParseString(s, format)
	default:
		return time.Time{}, false
	}
}

// ParseString parses s with format, falling back to lenient parsing.
func ParseString(s, format string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if format != "" {
		if t, err := time.ParseInLocation(Layout(format), s, time.Local); err == nil {
			return t, true
		}
	}
	t, err := cast.ToTimeInDefaultLocationE(s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
