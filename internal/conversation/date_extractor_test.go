package conversation

import (
	"testing"
	"time"
)

// Reference "now": Tuesday 2025-11-18, 09:00 clinic time.
func referenceNow() time.Time {
	loc := time.FixedZone("-05", -5*3600)
	return time.Date(2025, time.November, 18, 9, 0, 0, 0, loc)
}

func TestExtractDate(t *testing.T) {
	now := referenceNow()

	tests := []struct {
		name string
		text string
		want string // "2006-01-02", empty means no date
	}{
		{name: "hoy", text: "hoy", want: "2025-11-18"},
		{name: "manana", text: "mañana", want: "2025-11-19"},
		{name: "manana in sentence", text: "puede ser mañana?", want: "2025-11-19"},
		{name: "pasado manana", text: "pasado mañana", want: "2025-11-20"},
		{name: "spelled date", text: "el 19 de noviembre", want: "2025-11-19"},
		{name: "spelled date with year", text: "19 de noviembre de 2025", want: "2025-11-19"},
		{name: "iso date", text: "2025-11-19", want: "2025-11-19"},
		{name: "slash date", text: "19/11", want: "2025-11-19"},
		{name: "slash date with year", text: "19/11/2025", want: "2025-11-19"},
		{name: "slash date rolls to next year", text: "10/03", want: "2026-03-10"},
		{name: "next friday", text: "el viernes", want: "2025-11-21"},
		{name: "same weekday is next week", text: "el martes", want: "2025-11-25"},
		{name: "weekday with accent", text: "el miércoles", want: "2025-11-19"},
		{name: "saturday", text: "sábado", want: "2025-11-22"},
		{name: "vague", text: "algún día", want: ""},
		{name: "greeting", text: "hola", want: ""},
		{name: "impossible date", text: "31/02", want: ""},
		{name: "morning of day only", text: "en la mañana", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDate(tt.text, now)
			if tt.want == "" {
				if ok {
					t.Fatalf("ExtractDate(%q) = %v, want no date", tt.text, got)
				}
				return
			}
			if !ok {
				t.Fatalf("ExtractDate(%q) found nothing, want %s", tt.text, tt.want)
			}
			if got.Format("2006-01-02") != tt.want {
				t.Fatalf("ExtractDate(%q) = %s, want %s", tt.text, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestExtractDateUsesCallerLocation(t *testing.T) {
	now := referenceNow()
	got, ok := ExtractDate("mañana", now)
	if !ok {
		t.Fatal("expected a date")
	}
	if got.Location() != now.Location() {
		t.Fatalf("location = %v, want caller's %v", got.Location(), now.Location())
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}
}
