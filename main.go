package main

import (
	"context"
	"log"
	"os"

	"github.com/slack-go/slack"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <ticket-batch.json> [more batches...]", os.Args[0])
	}
	paths := os.Args[1:]

	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()
	log.Printf("Database initialized at %s", cfg.DBPath)

	cache := NewCache(NewSQLiteCacheBackend(db))
	llm := NewAnthropicClient(cfg.AnthropicAPIKey, cfg.LLMModel)

	var api *slack.Client
	if cfg.SlackBotToken != "" {
		api = slack.New(cfg.SlackBotToken)
	}

	StartCacheSweeper(cfg, db)
	StartMetricsServer(cfg.MetricsAddr)

	ctx := context.Background()
	pool := NewWorkerPool(cfg.WorkerCount)
	pool.Start(ctx)

	deps := UploadDeps{DB: db, Cache: cache, LLM: llm, Cfg: cfg}

	log.Printf("Processing %d upload file(s)...", len(paths))
	results := ProcessUploadFiles(ctx, deps, paths)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("upload failed file=%s err=%v", r.Path, r.Err)
			continue
		}
		text := FormatUploadSummary(r.Path, r.Summary)
		log.Print(text)
		if api != nil {
			notify := text
			if !pool.Submit(func(ctx context.Context) {
				NotifyUploadSummary(api, cfg.SummaryChannelID, notify)
			}) {
				log.Printf("summary notification dropped file=%s", r.Path)
			}
		}
	}

	pool.Stop()

	if failed > 0 {
		os.Exit(1)
	}
}
