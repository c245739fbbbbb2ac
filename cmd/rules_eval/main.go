package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rules-chat/internal/config"
	"rules-chat/internal/db"
	"rules-chat/internal/llm"
	"rules-chat/internal/repository"
	"rules-chat/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadEvalConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := zap.NewNop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		log.Fatalf("db ping: %v", err)
	}

	scenarios, err := loadScenarios(cfg.DatasetFile)
	if err != nil {
		log.Fatal(err)
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)
	judge := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.JudgeModel, cfg.LLMEmbeddingModel, logger)

	msgRepo := newMemoryMessageRepo()
	retriever := service.NewRetriever(llmClient, repository.NewPgRuleRepository(pool), cfg.RetrieverLimit)
	chatSvc := service.NewChatService(logger, llmClient, newMemoryConversationRepo(), msgRepo,
		service.NewWindowContextService(msgRepo, 5),
		retriever,
		service.ChatServiceConfig{Model: cfg.LLMModel, LightModel: cfg.LLMLightModel},
	)

	const evalUser = "eval-user"
	var passed, graded, rulesFound, rulesTotal int
	for i, sc := range scenarios {
		question := questionText(sc)
		fmt.Printf("%s[%d/%d]%s %s\n", colorCyan, i+1, len(scenarios), colorReset, question)

		if len(sc.Rules) > 0 {
			sections, err := retriever.Search(ctx, sc.Question)
			if err != nil {
				log.Fatalf("retrieve: %v", err)
			}
			found, total := ruleRecall(sc.Rules, sections)
			rulesFound += found
			rulesTotal += total
			fmt.Printf("Retrieval: %d/%d target rules\n", found, total)
		}

		// Conversacion nueva por pregunta: sin historial previo.
		answer, _, err := chatSvc.Answer(ctx, evalUser, "", question)
		if err != nil {
			log.Fatalf("answer failed: %v", err)
		}
		fmt.Printf("%s[Markus]%s %s\n", colorGreen, colorReset, answer)

		gr, err := gradeAnswer(ctx, judge, sc, answer)
		if err != nil {
			fmt.Printf("judge failed: %v\n\n", err)
			continue
		}
		graded++
		if gr.passed() {
			passed++
		}
		fmt.Printf("Judge: %q\n", gr.Reasoning)
		fmt.Printf("Expected %d | correct %d | incorrect %d\n\n", gr.ExpectedCorrect, gr.GeneratedCorrect, gr.GeneratedIncorrect)
	}

	fmt.Println("==== Summary ====")
	fmt.Printf("Answers: %d/%d fully correct (%d graded)\n", passed, len(scenarios), graded)
	if rulesTotal > 0 {
		fmt.Printf("Retrieval recall: %d/%d (%.2f)\n", rulesFound, rulesTotal, float64(rulesFound)/float64(rulesTotal))
	}
}
