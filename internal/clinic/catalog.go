package clinic

import "strings"

// Treatment is a catalog entry for a bookable service. The catalog is loaded
// once at process start and is read-only afterwards, so it is safe to share
// across concurrent requests.
type Treatment struct {
	Name            string   `json:"name"`
	PriceUSD        int      `json:"price_usd"`
	DurationMinutes int      `json:"duration_minutes"`
	Keywords        []string `json:"keywords,omitempty"`
}

// DefaultTreatments returns the built-in catalog.
func DefaultTreatments() []Treatment {
	return []Treatment{
		{Name: "Limpieza Facial", PriceUSD: 25, DurationMinutes: 90, Keywords: []string{"limpieza", "facial", "limpieza facial"}},
		{Name: "Toxina Botulínica", PriceUSD: 180, DurationMinutes: 45, Keywords: []string{"botox", "toxina", "arrugas", "lineas de expresion", "líneas de expresión"}},
		{Name: "Ácido Hialurónico", PriceUSD: 220, DurationMinutes: 60, Keywords: []string{"relleno", "rellenos", "acido hialuronico", "ácido hialurónico", "labios"}},
		{Name: "Peeling Químico", PriceUSD: 60, DurationMinutes: 60, Keywords: []string{"peeling", "exfoliacion", "exfoliación", "manchas"}},
		{Name: "Microdermoabrasión", PriceUSD: 55, DurationMinutes: 60, Keywords: []string{"microdermoabrasion", "microdermoabrasión", "punta de diamante"}},
		{Name: "Depilación Láser", PriceUSD: 45, DurationMinutes: 30, Keywords: []string{"depilacion", "depilación", "laser", "láser", "vello"}},
		{Name: "Microneedling", PriceUSD: 90, DurationMinutes: 75, Keywords: []string{"microneedling", "dermapen", "cicatrices", "poros"}},
		{Name: "Hidratación Profunda", PriceUSD: 40, DurationMinutes: 60, Keywords: []string{"hidratacion", "hidratación", "piel seca"}},
	}
}

// minPartialMatchLen is the shortest input allowed to match as a fragment of
// a longer keyword. Below this, replies like "si" or "no" land inside
// unrelated keywords ("lineas de expresion", "relleno") and book the wrong
// treatment.
const minPartialMatchLen = 4

// MatchTreatment finds the catalog entry matching free text. Matching is
// case-insensitive keyword/substring containment; when several keys match,
// the longest key wins so "relleno de labios" resolves past a bare "labios".
func (c *Config) MatchTreatment(text string) (*Treatment, bool) {
	if c == nil || len(c.Treatments) == 0 {
		return nil, false
	}
	normalized := normalizeMatchText(text)
	if normalized == "" {
		return nil, false
	}

	var best *Treatment
	bestKeyLen := 0
	for i := range c.Treatments {
		t := &c.Treatments[i]
		keys := append([]string{t.Name}, t.Keywords...)
		for _, key := range keys {
			k := normalizeMatchText(key)
			if k == "" {
				continue
			}
			matched := strings.Contains(normalized, k)
			if !matched && len(normalized) >= minPartialMatchLen {
				matched = strings.Contains(k, normalized)
			}
			if matched && len(k) > bestKeyLen {
				best = t
				bestKeyLen = len(k)
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// TreatmentByName returns the catalog entry with the exact (case-insensitive)
// name.
func (c *Config) TreatmentByName(name string) (*Treatment, bool) {
	if c == nil {
		return nil, false
	}
	key := normalizeMatchText(name)
	for i := range c.Treatments {
		if normalizeMatchText(c.Treatments[i].Name) == key {
			return &c.Treatments[i], true
		}
	}
	return nil, false
}

// normalizeMatchText lowercases and strips accents common in Spanish input so
// "Ácido" and "acido" compare equal.
func normalizeMatchText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	)
	return replacer.Replace(s)
}
