package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumina-estetica/citabot/internal/clinic"
)

// All user-facing copy lives here so business rules from clinic.Config are
// interpolated in exactly one place.

var spanishWeekdayNames = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

var spanishMonthNames = [...]string{
	"", "enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// formatSpanishDate renders "martes 19 de noviembre".
func formatSpanishDate(t time.Time) string {
	return fmt.Sprintf("%s %d de %s",
		spanishWeekdayNames[t.Weekday()], t.Day(), spanishMonthNames[t.Month()])
}

// formatClock renders minutes since midnight as "10:00 a. m.".
func formatClock(minutes int) string {
	hour := minutes / 60
	minute := minutes % 60
	suffix := "a. m."
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour == 12:
		suffix = "p. m."
	case hour > 12:
		display = hour - 12
		suffix = "p. m."
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, suffix)
}

func greetingPrompt(cfg *clinic.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "¡Hola! Soy el asistente virtual de %s. Con gusto te ayudo a agendar tu cita. 😊\n\n", cfg.Name)
	b.WriteString("Estos son nuestros tratamientos:\n")
	for _, t := range cfg.Treatments {
		fmt.Fprintf(&b, "• %s — $%d\n", t.Name, t.PriceUSD)
	}
	b.WriteString("\n¿Cuál tratamiento te interesa?")
	return b.String()
}

func treatmentRetryPrompt(cfg *clinic.Config) string {
	names := make([]string, len(cfg.Treatments))
	for i, t := range cfg.Treatments {
		names[i] = t.Name
	}
	return fmt.Sprintf("No logré identificar el tratamiento. ¿Cuál de estos te interesa? %s", strings.Join(names, ", "))
}

func askDatePrompt(treatment string) string {
	return fmt.Sprintf("¡Perfecto, %s! ¿Para qué día te gustaría la cita? Puedes decirme por ejemplo \"mañana\", \"el viernes\" o \"19 de noviembre\".", treatment)
}

func dateRetryPrompt() string {
	return "No entendí la fecha. ¿Me la puedes repetir? Por ejemplo: \"mañana\", \"el viernes\" o \"19/11\"."
}

func pastDatePrompt() string {
	return "Esa fecha ya pasó. ¿Para qué día futuro te gustaría la cita?"
}

func closedDayPrompt(cfg *clinic.Config, date time.Time) string {
	return fmt.Sprintf("El %s la clínica está cerrada. Atendemos de lunes a sábado. ¿Qué otro día te sirve?", formatSpanishDate(date))
}

func askTimePrompt(cfg *clinic.Config, date time.Time) string {
	openMin, closeMin, open := cfg.OpenRange(date)
	if !open {
		return "¿A qué hora te gustaría la cita?"
	}
	return fmt.Sprintf("Listo, el %s. ¿A qué hora? Atendemos de %s a %s.",
		formatSpanishDate(date), formatClock(openMin), formatClock(closeMin))
}

func timeRetryPrompt() string {
	return "No entendí la hora. ¿Me la puedes repetir? Por ejemplo: \"10:00 am\" o \"a las 3 de la tarde\"."
}

func outOfHoursPrompt(cfg *clinic.Config, date time.Time, reason string) string {
	switch reason {
	case clinic.ReasonLunch:
		return fmt.Sprintf("Entre la %s y las %s cerramos por almuerzo. ¿Te sirve otra hora?",
			formatClock(clinic.MustClockMinutes(cfg.LunchStart)), formatClock(clinic.MustClockMinutes(cfg.LunchEnd)))
	case clinic.ReasonClosedDay:
		return closedDayPrompt(cfg, date)
	default:
		openMin, closeMin, open := cfg.OpenRange(date)
		if !open {
			return closedDayPrompt(cfg, date)
		}
		return fmt.Sprintf("Ese horario está fuera de nuestra atención. El %s atendemos de %s a %s. ¿Qué hora te sirve?",
			formatSpanishDate(date), formatClock(openMin), formatClock(closeMin))
	}
}

func slotTakenPrompt(alternatives []string) string {
	if len(alternatives) == 0 {
		return "Lo siento, ese horario ya está ocupado y no veo más espacios ese día. ¿Quieres intentar con otro día?"
	}
	return fmt.Sprintf("Lo siento, ese horario ya está ocupado. Ese día tengo disponible: %s. ¿Cuál te sirve?",
		strings.Join(alternatives, ", "))
}

func askNamePrompt() string {
	return "¡Esa hora está disponible! ¿A nombre de quién agendo la cita?"
}

func nameRetryPrompt() string {
	return "¿Me confirmas tu nombre completo para la cita, por favor?"
}

func summaryPrompt(c Collected, date time.Time, startMinutes int) string {
	return fmt.Sprintf("Para confirmar: %s el %s a las %s, a nombre de %s. ¿Confirmamos la cita? (sí/no)",
		c.TreatmentName, formatSpanishDate(date), formatClock(startMinutes), c.Name)
}

func confirmationRetryPrompt() string {
	return "¿Me confirmas con \"sí\" o \"no\" si agendamos la cita?"
}

func committedPrompt(cfg *clinic.Config, c Collected, date time.Time, startMinutes int) string {
	return fmt.Sprintf("✅ ¡Tu cita quedó agendada! %s el %s a las %s, a nombre de %s. Te esperamos en %s. Si necesitas cambiarla, escríbenos por aquí.",
		c.TreatmentName, formatSpanishDate(date), formatClock(startMinutes), c.Name, cfg.Name)
}

func cancelledPrompt(cfg *clinic.Config) string {
	return fmt.Sprintf("Entendido, cancelé el proceso. Cuando quieras agendar, aquí estoy. También puedes hacerlo en %s. 😊", cfg.BookingLink)
}

func handoffPrompt(cfg *clinic.Config) string {
	return fmt.Sprintf("Parece que no estoy logrando ayudarte por aquí. Puedes escribir directamente a %s o agendar tú mismo en %s.",
		cfg.EscalationContact, cfg.BookingLink)
}

func gatewayDownPrompt(cfg *clinic.Config) string {
	return fmt.Sprintf("En este momento no puedo consultar la agenda. 🙏 Intenta de nuevo en unos minutos o agenda directamente en %s.", cfg.BookingLink)
}

func interruptionSuffix() string {
	return "¿Continuamos con tu cita?"
}
