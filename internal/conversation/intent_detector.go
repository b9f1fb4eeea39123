package conversation

import "regexp"

// Intent is the coarse reading of a confirmation-stage answer.
type Intent int

const (
	IntentNone Intent = iota
	IntentAffirm
	IntentNegate
	IntentCancel
)

// IntentDetector recognizes cancellation and yes/no answers with fixed
// patterns. Patterns run on normalized (lowercased, accent-stripped) text;
// the deterministic verdict always wins over the AI classifier.
type IntentDetector struct {
	cancel []*regexp.Regexp
	affirm []*regexp.Regexp
	negate []*regexp.Regexp
	date   *regexp.Regexp
	clock  *regexp.Regexp
}

// NewIntentDetector compiles the pattern set.
func NewIntentDetector() *IntentDetector {
	return &IntentDetector{
		cancel: []*regexp.Regexp{
			regexp.MustCompile(`\bcancel(a|o|ar|alo|emos|en)\b`),
			regexp.MustCompile(`\bya no\b`),
			regexp.MustCompile(`\bolvida(lo|moslo)?\b`),
			regexp.MustCompile(`\bdeja(lo)? asi\b`),
			regexp.MustCompile(`\bno quiero (agendar|la cita|continuar|seguir)\b`),
			regexp.MustCompile(`\bmejor (no|despues|luego|otro dia)\b`),
			regexp.MustCompile(`\bsalir\b`),
		},
		affirm: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(si|sip|yes|dale|claro|listo|ok|okay|vale)\b`),
			regexp.MustCompile(`\bconfirm(o|ar|ada|ado)\b`),
			regexp.MustCompile(`\b(correcto|perfecto|de acuerdo|esta bien|asi es|exacto)\b`),
		},
		negate: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(no|nop|nope)\b`),
			regexp.MustCompile(`\b(incorrecto|esta mal|no es (correcto|asi))\b`),
			regexp.MustCompile(`\bcambi(a|ar|o|emos)\b`),
			regexp.MustCompile(`\b(otra hora|otro dia|otra fecha)\b`),
		},
		date:  regexp.MustCompile(`\b(dia|fecha|manana|hoy|lunes|martes|miercoles|jueves|viernes|sabado|domingo|\d{1,2}/\d{1,2}|\d{1,2} de [a-z]+)\b`),
		clock: regexp.MustCompile(`\b(hora|\d{1,2}:\d{2}|\d{1,2}\s*(am|pm)|tarde|noche|mediodia|(de|en|por) la manana)\b`),
	}
}

// IsCancellation reports whether the text is an unambiguous cancel request.
func (d *IntentDetector) IsCancellation(text string) bool {
	t := normalizeText(text)
	for _, re := range d.cancel {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// DetectConfirmation classifies a confirmation-stage answer. Cancellation
// outranks negation which outranks affirmation, so "no, cancela" cancels and
// "si pero cambia la hora" corrects rather than commits.
func (d *IntentDetector) DetectConfirmation(text string) Intent {
	t := normalizeText(text)
	for _, re := range d.cancel {
		if re.MatchString(t) {
			return IntentCancel
		}
	}
	for _, re := range d.negate {
		if re.MatchString(t) {
			return IntentNegate
		}
	}
	for _, re := range d.affirm {
		if re.MatchString(t) {
			return IntentAffirm
		}
	}
	return IntentNone
}

// MentionsDate reports whether a correction talks about the day. "de la
// manana" and friends are time-of-day wishes, so those usages of "manana"
// are stripped before matching.
func (d *IntentDetector) MentionsDate(text string) bool {
	return d.date.MatchString(morningPhraseReplacer.Replace(normalizeText(text)))
}

// MentionsTime reports whether a correction talks about the hour.
func (d *IntentDetector) MentionsTime(text string) bool {
	return d.clock.MatchString(normalizeText(text))
}
