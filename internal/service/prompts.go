package service

import (
	"encoding/json"
	"strings"

	"rules-chat/internal/llm"
)

const ragSystemPrompt = `You are Markus, an assistant that answers questions about the sport of ultimate.
You are friendly but business-like. The sport is called "ultimate", never "ultimate frisbee".

Your job:
1. Answer questions directly from the provided context. Do not say "based on the context".
2. Answer follow-up questions using the conversation history, as long as they are about ultimate.

Rules:
- Rules questions must be answered only with what the rules say. The rules use dense legal language; read them carefully.
- Use the conversation history to resolve what the user refers to.
- Say "I don't know" when neither the context nor the history answers the question.
- Say "Sorry, I only know about ultimate" when the question is not about ultimate.
- You do not have the rules for beach ultimate, ultimate 4's or youth adaptations. For those say "Sorry, I only know about standard ultimate".
- List the rules you used, by rule number. Glossary entries are not rules.`

const ragAnswerFormat = `<response_format>
Reply with a single JSON object and nothing else:
{"answer": "concise answer, one sentence unless a list is needed", "relevant_rules": ["rule numbers used, sorted"], "error": "reason if no answer can be given, otherwise null"}
</response_format>`

const rewordQueryPrompt = `You help retrieve documents about the sport of ultimate. Every question is about ultimate.

Given the conversation history and the latest user input, rewrite the input so it works as a standalone search query.
- Only rewrite when the input refers to something discussed earlier ("it", "that rule", "elaborate").
- Replace such references with the concept they point to.
- Do not add "in ultimate" to the query.
- If no rewrite is needed, reply with NONE.
- Reply with the query only.

Conversation history:
{history}

User input:
{input}`

type contextItem struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

func buildRewordPrompt(history []llm.Message, question string) string {
	r := strings.NewReplacer(
		"{history}", toIndentedJSON(history),
		"{input}", question,
	)
	return r.Replace(rewordQueryPrompt)
}

func buildRAGPrompt(question string, sections []contextItem) string {
	var sb strings.Builder
	sb.WriteString("<new_question>\n")
	sb.WriteString(toIndentedJSON(question))
	sb.WriteString("\n</new_question>\n\n<context>\n")
	sb.WriteString(toIndentedJSON(sections))
	sb.WriteString("\n</context>\n\n")
	sb.WriteString(ragAnswerFormat)
	return sb.String()
}

func toIndentedJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
