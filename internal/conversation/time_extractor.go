package conversation

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	clockRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm|a\.m\.|p\.m\.)?\b`)
	bareHourRe = regexp.MustCompile(`\b(?:a\s+las?\s+)?(\d{1,2})\s*(am|pm|a\.m\.|p\.m\.)?\b`)
)

var spanishHourWords = map[string]int{
	"una": 1, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	"once": 11, "doce": 12,
}

// ExtractTime resolves free text into minutes since midnight. Ambiguous bare
// hours lean on the day-period words ("de la tarde") when present; otherwise
// 1 through 7 are read as afternoon and 8 through 12 as morning, which
// matches how patients phrase clinic hours.
func ExtractTime(text string) (int, bool) {
	t := normalizeText(text)

	if m := clockRe.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if minute > 59 {
			return 0, false
		}
		hour, ok := resolveHour(hour, m[3], t, hour >= 13)
		if !ok {
			return 0, false
		}
		return hour*60 + minute, true
	}

	if m := bareHourRe.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		hour, ok := resolveHour(hour, m[2], t, hour >= 13)
		if !ok {
			return 0, false
		}
		return hour * 60, true
	}

	for word, hour := range spanishHourWords {
		if !containsWord(t, word) {
			continue
		}
		if !strings.Contains(t, "a las") && !strings.Contains(t, "a la") &&
			!hasPeriodWord(t) {
			continue
		}
		hour, ok := resolveHour(hour, "", t, false)
		if !ok {
			return 0, false
		}
		return hour * 60, true
	}

	return 0, false
}

// resolveHour turns a 1-12 (or 24h) hour plus meridiem hints into a 24h hour.
func resolveHour(hour int, meridiem, text string, alreadyH24 bool) (int, bool) {
	if hour < 0 || hour > 23 {
		return 0, false
	}
	if alreadyH24 {
		return hour, true
	}

	switch {
	case strings.HasPrefix(meridiem, "p"):
		if hour < 12 {
			hour += 12
		}
	case strings.HasPrefix(meridiem, "a"):
		if hour == 12 {
			hour = 0
		}
	case strings.Contains(text, "tarde") || strings.Contains(text, "noche"):
		if hour < 12 {
			hour += 12
		}
	case strings.Contains(text, "manana") || strings.Contains(text, "madrugada"):
		// morning as-is
	default:
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
	}
	return hour, true
}

func hasPeriodWord(t string) bool {
	return strings.Contains(t, "tarde") || strings.Contains(t, "noche") ||
		strings.Contains(t, "manana") || strings.Contains(t, "mediodia")
}
