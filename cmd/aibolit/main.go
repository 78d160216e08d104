package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roelfdiedericks/aibolit/internal/config"
	"github.com/roelfdiedericks/aibolit/internal/convo"
	"github.com/roelfdiedericks/aibolit/internal/gateway"
	"github.com/roelfdiedericks/aibolit/internal/gemini"
	"github.com/roelfdiedericks/aibolit/internal/httpapi"
	"github.com/roelfdiedericks/aibolit/internal/keepalive"
	"github.com/roelfdiedericks/aibolit/internal/llm"
	. "github.com/roelfdiedericks/aibolit/internal/logging"
	"github.com/roelfdiedericks/aibolit/internal/telegram"
)

const version = "1.0.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("aibolit %s\n", version)
		return
	}

	Init(&Config{Level: "info"})

	cfg, err := config.Load()
	if err != nil {
		L_fatal("failed to load config: %v", err)
	}
	SetLevel(cfg.LogLevel)

	L_info("aibolit %s starting", version)
	L_info("configuration", "keys", len(cfg.Credentials()), "listen", cfg.ListenAddr, "externalURL", cfg.ExternalURL != "")

	client := gemini.NewClient()
	selector, err := llm.NewSelector(client, cfg.Credentials())
	if err != nil {
		L_fatal("failed to build selector: %v", err)
	}

	gw := gateway.New(selector, client, convo.NewStore())

	bot, err := telegram.New(cfg.TelegramToken, gw)
	if err != nil {
		L_fatal("failed to connect to telegram: %v", err)
	}

	api := httpapi.New(cfg.ListenAddr, gw)
	api.Start()

	pinger := keepalive.New(cfg.ExternalURL)
	pinger.Start()

	// Find a working backend before the first question arrives.
	go gw.Warmup(context.Background())

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		L_info("shutting down", "signal", s.String())

		pinger.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := api.Shutdown(ctx); err != nil {
			L_warn("httpapi shutdown failed", "error", err)
		}
		bot.Stop()
	}()

	bot.Start()
	L_info("aibolit stopped")
}
