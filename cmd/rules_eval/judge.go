package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"rules-chat/internal/domain"
	"rules-chat/internal/llm"
)

// Scenario es una pregunta de opcion multiple sobre el reglamento.
type Scenario struct {
	Section  string   `json:"section"`
	Question string   `json:"question"`
	Choices  []Choice `json:"choices"`
	Answers  string   `json:"answers"`
	Rules    []string `json:"rules"`
}

type Choice struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// gradeResponse es la respuesta estructurada del corrector.
type gradeResponse struct {
	Reasoning          string `json:"reasoning"`
	ExpectedCorrect    int    `json:"expected_correct"`
	GeneratedCorrect   int    `json:"generated_correct"`
	GeneratedIncorrect int    `json:"generated_incorrect"`
}

func loadScenarios(path string) ([]Scenario, error) {
	if path == "" {
		return defaultScenarios, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var out []Scenario
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return out, nil
}

var defaultScenarios = []Scenario{
	{
		Section:  "15. Pull",
		Question: "Who throws the pull at the start of a point?",
		Choices: []Choice{
			{Letter: "A", Text: "The offense"},
			{Letter: "B", Text: "The defense"},
			{Letter: "C", Text: "The observer"},
		},
		Answers: "B",
		Rules:   []string{"15.A.1. The pull is thrown by the defense."},
	},
	{
		Section:  "9. Stall count",
		Question: "What is the highest stall count that can be reached before a stall?",
		Choices: []Choice{
			{Letter: "A", Text: "Eight"},
			{Letter: "B", Text: "Ten"},
			{Letter: "C", Text: "Twelve"},
		},
		Answers: "B",
	},
}

// questionText arma la pregunta con sus opciones, una por linea.
func questionText(sc Scenario) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(sc.Question))
	for _, c := range sc.Choices {
		sb.WriteString("\n")
		sb.WriteString(c.Letter)
		sb.WriteString(". ")
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func gradeAnswer(ctx context.Context, judge llm.LLMClient, sc Scenario, answer string) (gradeResponse, error) {
	raw, err := judge.Generate(ctx, buildGradePrompt(questionText(sc), sc.Answers, answer))
	if err != nil {
		return gradeResponse{}, err
	}

	jsonStr := extractFirstJSONObject(raw)
	if jsonStr == "" {
		return gradeResponse{}, fmt.Errorf("judge returned non-json: %q", raw)
	}

	var gr gradeResponse
	if err := json.Unmarshal([]byte(jsonStr), &gr); err != nil {
		return gradeResponse{}, fmt.Errorf("parse judge json: %w (raw=%q)", err, jsonStr)
	}

	gr.ExpectedCorrect = clampNonNegative(gr.ExpectedCorrect)
	gr.GeneratedCorrect = clampNonNegative(gr.GeneratedCorrect)
	gr.GeneratedIncorrect = clampNonNegative(gr.GeneratedIncorrect)
	if gr.GeneratedCorrect > gr.ExpectedCorrect {
		gr.GeneratedCorrect = gr.ExpectedCorrect
	}
	return gr, nil
}

// passed: todas las opciones correctas y ninguna incorrecta.
func (g gradeResponse) passed() bool {
	return g.ExpectedCorrect > 0 && g.GeneratedCorrect == g.ExpectedCorrect && g.GeneratedIncorrect == 0
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func buildGradePrompt(question, expected, generated string) string {
	return fmt.Sprintf(`You are a quiz-marking assistant. Please grade the following multiple choice question.
The respondent may have included some extraneous information, so please ignore that.
We want to know which choices (A, B, C, etc) they selected.
Some questions have multiple correct answers, so record:
- number of expected correct answers
- number of generated correct answers
- number of generated incorrect answers

Example: expected answer "A, B", generated answer "A, C" gives expected_correct=2, generated_correct=1, generated_incorrect=1.

Question:
%s

Expected Answer:
%s

Generated Answer:
%s

Answer ONLY with JSON (no markdown):
{
  "reasoning": "...",
  "expected_correct": 0,
  "generated_correct": 0,
  "generated_incorrect": 0
}`, question, expected, generated)
}

// ruleRecall cuenta cuantas de las reglas objetivo aparecen entre las secciones recuperadas.
func ruleRecall(targetRules []string, retrieved []domain.RuleSection) (found, total int) {
	targets := make(map[string]bool)
	for _, r := range targetRules {
		for _, n := range extractRuleNumbers(r) {
			targets[n] = true
		}
	}
	got := make(map[string]bool)
	for _, s := range retrieved {
		if s.RuleNumber != "" {
			got[s.RuleNumber] = true
		}
		for _, n := range extractRuleNumbers(s.Content) {
			got[n] = true
		}
	}
	for n := range targets {
		if got[n] {
			found++
		}
	}
	return found, len(targets)
}

// extractRuleNumbers toma el primer token de cada linea que parece un numero de regla.
func extractRuleNumbers(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		tok := strings.TrimSuffix(fields[0], ".")
		if tok == "" || tok[0] < '0' || tok[0] > '9' || !strings.Contains(tok, ".") {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// extractFirstJSONObject devuelve el primer objeto {...} balanceado.
func extractFirstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
