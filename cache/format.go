package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"
	"github.com/goodsign/monday"
)

// mondayLocales maps locale strings to monday locales for timestamps.
var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"de_de": monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_fr": monday.LocaleFrFR,
	"fr_ca": monday.LocaleFrCA,
	"es":    monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"nl":    monday.LocaleNlNL,
	"pt":    monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"ja":    monday.LocaleJaJP,
}

// MondayLocale returns the monday locale for a locale string such as
// "de-DE", falling back to the language and then to US English.
func MondayLocale(locale string) monday.Locale {
	locale = strings.ToLower(strings.ReplaceAll(locale, "-", "_"))
	if l, ok := mondayLocales[locale]; ok {
		return l
	}
	if lang, _, found := strings.Cut(locale, "_"); found {
		if l, ok := mondayLocales[lang]; ok {
			return l
		}
	}
	return monday.LocaleEnUS
}

// FormatEntries renders a cache listing with localized timestamps and
// human-readable sizes.
func FormatEntries(entries []Entry, locale string) string {
	if len(entries) == 0 {
		return "(cache is empty)\n"
	}
	loc := MondayLocale(locale)

	var sb strings.Builder
	var total int64
	fmt.Fprintf(&sb, "%-12s  %-22s  %9s  %9s  %s\n", "HASH", "CREATED", "SOURCE", "STORED", "INSTRUCTIONS")
	for _, e := range entries {
		total += e.StoredSize
		fmt.Fprintf(&sb, "%-12s  %-22s  %9s  %9s  %s\n",
			e.Hash[:min(12, len(e.Hash))],
			monday.Format(e.Created, "02 Jan 2006 15:04", loc),
			humanize.Bytes(uint64(e.SourceSize)),
			humanize.Bytes(uint64(e.StoredSize)),
			humanize.Comma(e.Instructions),
		)
	}
	fmt.Fprintf(&sb, "%d entries, %s stored\n", len(entries), humanize.Bytes(uint64(total)))
	return sb.String()
}

// ParseBefore parses the argument of `cache prune --before`. It accepts an
// age such as "36h" or "7d", or any date dateparse understands.
func ParseBefore(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return now.AddDate(0, 0, -n), nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := dateparse.ParseIn(s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse date %q: %w", s, err)
	}
	return t, nil
}
