package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}))?\b`)
	spelledDateRe = regexp.MustCompile(`\b(\d{1,2})\s+de\s+([a-z]+)(?:\s+(?:de|del)\s+(\d{4}))?\b`)
)

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var spanishWeekdays = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
	"domingo":   time.Sunday,
}

// normalizeText lowercases and strips Spanish accents so the extractors and
// intent regexes can match on plain ASCII.
var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"¿", " ", "¡", " ",
)

func normalizeText(text string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// ExtractDate resolves free text into a calendar date in now's location.
// Relative expressions ("hoy", "manana", weekday names) resolve against now;
// vague text ("algun dia") yields no date. The result is midnight local.
func ExtractDate(text string, now time.Time) (time.Time, bool) {
	t := normalizeText(text)
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	if strings.Contains(t, "pasado manana") {
		return today.AddDate(0, 0, 2), true
	}
	if strings.Contains(t, "manana") && !looksLikeMorningOnly(t) {
		return today.AddDate(0, 0, 1), true
	}
	if strings.Contains(t, "hoy") {
		return today, true
	}

	for name, wd := range spanishWeekdays {
		if !containsWord(t, name) {
			continue
		}
		// "el lunes" means the next one, never today.
		ahead := (int(wd) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), true
	}

	if m := isoDateRe.FindStringSubmatch(t); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return buildDate(year, time.Month(month), day, loc)
	}

	if m := spelledDateRe.FindStringSubmatch(t); m != nil {
		if month, ok := spanishMonths[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			year := today.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			} else if monthDayPassed(today, month, day) {
				year++
			}
			return buildDate(year, month, day, loc)
		}
	}

	if m := slashDateRe.FindStringSubmatch(t); m != nil {
		// Day-first, per local convention.
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := today.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		} else if monthDayPassed(today, time.Month(month), day) {
			year++
		}
		return buildDate(year, time.Month(month), day, loc)
	}

	return time.Time{}, false
}

// morningPhraseReplacer removes the time-of-day usages of "manana" so the
// remaining occurrences, if any, can be read as the date.
var morningPhraseReplacer = strings.NewReplacer(
	"de la manana", "", "en la manana", "", "por la manana", "",
)

// looksLikeMorningOnly distinguishes "manana" the date from "de la manana"
// and "en la manana" the time of day.
func looksLikeMorningOnly(t string) bool {
	if strings.Contains(t, "de la manana") || strings.Contains(t, "en la manana") ||
		strings.Contains(t, "por la manana") {
		// Only time-of-day usage if no other "manana" occurrence remains.
		return !strings.Contains(morningPhraseReplacer.Replace(t), "manana")
	}
	return false
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isLetter(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// buildDate rejects impossible dates like 31/02 instead of letting time.Date
// normalize them into the next month.
func buildDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func monthDayPassed(today time.Time, month time.Month, day int) bool {
	if month < today.Month() {
		return true
	}
	return month == today.Month() && day < today.Day()
}
