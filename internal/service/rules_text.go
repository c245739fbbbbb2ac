package service

import (
	"regexp"
	"strings"

	"rules-chat/internal/domain"
)

// Numeracion de reglas: 1.A., 15.B.3., 17.C.2.a., 3.F.1.b.2.
var ruleBoundary = regexp.MustCompile(`\n\b(\d+\.[A-Z](?:\.\d+)*(?:\.[a-z](?:\.\d+)?)*\.)`)

// RuleChunk es una regla numerada con su texto.
type RuleChunk struct {
	Number string
	Body   string
}

// SplitRuleSections corta el texto en los limites de numero de regla. El texto previo a la
// primera regla se descarta. Los numeros se devuelven sin el punto final.
func SplitRuleSections(text string) []RuleChunk {
	text = "\n" + strings.ReplaceAll(text, "\r\n", "\n")
	locs := ruleBoundary.FindAllStringSubmatchIndex(text, -1)
	chunks := make([]RuleChunk, 0, len(locs))
	for i, loc := range locs {
		number := strings.TrimSuffix(text[loc[2]:loc[3]], ".")
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunks = append(chunks, RuleChunk{
			Number: number,
			Body:   strings.TrimSpace(text[loc[3]:end]),
		})
	}
	return chunks
}

// ExtractRules busca el texto de cada regla pedida. Las reglas ausentes no aparecen en el mapa.
func ExtractRules(text string, numbers []string) map[string]string {
	all := make(map[string]string)
	for _, c := range SplitRuleSections(text) {
		all[c.Number] = c.Body
	}
	found := make(map[string]string, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSuffix(strings.TrimSpace(n), ".")
		if body, ok := all[n]; ok {
			found[n] = body
		}
	}
	return found
}

// formatRelevantRules arma el bloque markdown con el texto completo de las reglas usadas,
// en el orden en que el modelo las cito.
func formatRelevantRules(numbers []string, sections []contextItem) string {
	var rulesText strings.Builder
	for _, s := range sections {
		if s.Source == domain.SourceRules {
			rulesText.WriteString("\n")
			rulesText.WriteString(s.Content)
		}
	}
	bodies := ExtractRules(rulesText.String(), numbers)

	var sb strings.Builder
	seen := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSuffix(strings.TrimSpace(n), ".")
		body, ok := bodies[n]
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		sb.WriteString("- **")
		sb.WriteString(n)
		sb.WriteString("**: ")
		sb.WriteString(strings.ReplaceAll(body, "\n- ", "\n  - "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Text reconstruye la regla con su numero al inicio, que es lo que ExtractRules espera.
func (c RuleChunk) Text() string {
	return c.Number + ". " + c.Body
}

// SplitGlossary agrupa los parrafos del glosario en bloques de hasta maxLen caracteres.
// Un parrafo mas largo que maxLen queda solo en su bloque.
func SplitGlossary(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = 1800
	}
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(p)+2 > maxLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()
	return chunks
}
