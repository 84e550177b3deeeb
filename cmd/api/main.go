package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/vinaysb/mindcare-navigator/internal/config"
	"github.com/vinaysb/mindcare-navigator/internal/httpapi"
	"github.com/vinaysb/mindcare-navigator/internal/store"
	"github.com/vinaysb/mindcare-navigator/internal/store/rabbitmq"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	st, mode := store.Select(ctx, cfg)
	if err := st.EnsureSchema(ctx); err != nil {
		log.Printf("ensure schema: %v", err)
	}

	// Async chat needs both the relational tier and the broker; run
	// without it rather than failing startup.
	var rabbit *rabbitmq.Publisher
	if mode == store.ModePrimary {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Printf("rabbit unavailable, async chat disabled: %v", err)
		} else {
			rabbit = p
			defer rabbit.Close()
		}
	}

	r := httpapi.NewRouter(cfg, st, mode, rabbit)

	log.Printf("api listening on %s (storage=%s)", cfg.Addr, mode)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
