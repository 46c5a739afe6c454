package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/api/llmclient"
)

var prompt = flag.String("prompt",
	"Give me a very very long introduction to Seoul street food so I can evaluate if streaming works.",
	"the prompt to stream a completion for")

func chatStream(ctx context.Context, client llmclient.Client) {
	chunks, err := client.Stream(ctx, *prompt)
	if err != nil {
		log.Fatal(err)
	}
	for chunk := range chunks {
		fmt.Print(chunk)
	}
	fmt.Println()
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}
	ctx := context.Background()
	flag.Parse()

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "vllm" {
		fmt.Println("LLM API key is not set")
		return
	}
	fmt.Printf("Calling %s backend (model %s)...\n", cfg.LLM.Provider, cfg.LLM.Model)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	client, err := llmclient.New(cfg.LLM, logger)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	chatStream(ctx, client)
}
