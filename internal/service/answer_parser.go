package service

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ragAnswer es el objeto JSON que se pide al modelo.
type ragAnswer struct {
	Answer        string   `json:"answer"`
	RelevantRules []string `json:"relevant_rules"`
	Error         *string  `json:"error"`
}

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// parseRAGAnswer intenta leer la respuesta estructurada. Si el modelo no devolvio JSON
// valido, ok es false y el texto crudo limpio se usa como respuesta.
func parseRAGAnswer(raw string) (ragAnswer, bool) {
	cleaned := cleanLLMJSONResponse(raw)
	candidates := []string{extractFirstJSONObject(cleaned), cleaned}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		var out ragAnswer
		if err := json.Unmarshal([]byte(c), &out); err != nil {
			continue
		}
		out.Answer = strings.TrimSpace(out.Answer)
		if out.Answer == "" && (out.Error == nil || strings.TrimSpace(*out.Error) == "") {
			continue
		}
		return out, true
	}
	return ragAnswer{}, false
}

// cleanLLMJSONResponse quita fences ```json ... ``` y BOM.
func cleanLLMJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func extractFirstJSONObject(input string) string {
	start := strings.IndexByte(input, '{')
	if start == -1 {
		return ""
	}

	inString := false
	escape := false
	depth := 0

	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
