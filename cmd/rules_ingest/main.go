package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rules-chat/internal/config"
	"rules-chat/internal/db"
	"rules-chat/internal/llm"
	"rules-chat/internal/repository"
	"rules-chat/internal/service"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadIngestConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db pool", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)
	indexer := service.NewRuleIndexer(logger, llmClient, repository.NewPgRuleRepository(pool))

	rules, err := os.ReadFile(cfg.RulesFile)
	if err != nil {
		logger.Fatal("read rules", zap.String("file", cfg.RulesFile), zap.Error(err))
	}
	n, err := indexer.IndexRules(ctx, string(rules))
	if err != nil {
		logger.Fatal("index rules", zap.Int("stored", n), zap.Error(err))
	}
	if n == 0 {
		logger.Warn("no numbered rules found", zap.String("file", cfg.RulesFile))
	}

	if cfg.GlossaryFile == "" {
		return
	}
	glossary, err := os.ReadFile(cfg.GlossaryFile)
	if err != nil {
		logger.Fatal("read glossary", zap.String("file", cfg.GlossaryFile), zap.Error(err))
	}
	if _, err := indexer.IndexGlossary(ctx, string(glossary), cfg.GlossaryChunkSize); err != nil {
		logger.Fatal("index glossary", zap.Error(err))
	}
}
