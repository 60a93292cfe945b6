package console

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	xmessage "golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders numbers and timestamps for a locale.
type Formatter struct {
	locale   string
	location *time.Location
	printer  *xmessage.Printer
}

// NewFormatter builds a formatter. Hebrew uses the he-IL conventions the
// dashboard was designed around.
func NewFormatter(locale string, loc *time.Location) Formatter {
	if loc == nil {
		loc = time.Local
	}
	tag := language.Hebrew
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	return Formatter{locale: locale, location: loc, printer: xmessage.NewPrinter(tag)}
}

// Count formats an integer with grouping separators.
func (f Formatter) Count(n int) string {
	return f.printer.Sprint(number.Decimal(n))
}

// Amount formats a shekel amount.
func (f Formatter) Amount(v float64) string {
	return "₪" + f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// Date formats a backend timestamp as dd.mm.yyyy, hh:mm. Unparseable values
// are returned unchanged and empty values render as "-".
func (f Formatter) Date(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	t, ok := ParseTimestamp(value, f.location)
	if !ok {
		return value
	}
	return t.In(f.location).Format("02.01.2006, 15:04")
}

// Since describes how long ago t happened.
func (f Formatter) Since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// Truncate shortens s to limit runes, appending an ellipsis.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
