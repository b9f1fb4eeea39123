package conversation

import "testing"

func TestExtractTime(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   int // minutes since midnight
		wantOK bool
	}{
		{name: "am hour", text: "10am", want: 600, wantOK: true},
		{name: "am hour with space", text: "10 am", want: 600, wantOK: true},
		{name: "pm hour", text: "3 pm", want: 900, wantOK: true},
		{name: "24h clock", text: "15:00", want: 900, wantOK: true},
		{name: "clock with minutes", text: "10:30", want: 630, wantOK: true},
		{name: "clock with meridiem", text: "10:30 am", want: 630, wantOK: true},
		{name: "a las with afternoon word", text: "a las 3 de la tarde", want: 900, wantOK: true},
		{name: "a las morning word", text: "a las 10 de la mañana", want: 600, wantOK: true},
		{name: "bare small hour leans afternoon", text: "a las 3", want: 900, wantOK: true},
		{name: "bare large hour leans morning", text: "a las 11", want: 660, wantOK: true},
		{name: "number word", text: "a las diez", want: 600, wantOK: true},
		{name: "number word afternoon", text: "a las cuatro de la tarde", want: 960, wantOK: true},
		{name: "evening word", text: "7 de la noche", want: 1140, wantOK: true},
		{name: "noon am edge", text: "12 pm", want: 720, wantOK: true},
		{name: "no time", text: "no sé todavía", wantOK: false},
		{name: "bad minutes", text: "10:75", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTime(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractTime(%q) ok = %v, want %v (got %d)", tt.text, ok, tt.wantOK, got)
			}
			if ok && got != tt.want {
				t.Fatalf("ExtractTime(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
