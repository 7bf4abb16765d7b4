package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/gommon/log"

	"neta/pkg/inference"
	"neta/pkg/server"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var inf inference.Inferencer

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		inf = inference.NewOpenAIInferencer(apiKey, os.Getenv("OPENAI_MODEL"))
	}

	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		gemini, err := inference.NewGeminiInferencer(geminiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Fatal(err)
		}
		inf = gemini
	}

	if grokKey := os.Getenv("GROK_API_KEY"); grokKey != "" {
		inf = inference.NewGrokInferencer(grokKey, os.Getenv("GROK_MODEL"))
	}

	if inf == nil {
		log.Warn("no provider API key configured; POST /api/generate will return 500 until one is set")
	}

	srv := server.NewServer(ctx, inf, os.Getenv("ALLOW_ORIGIN"))
	srv.Echo.Logger.SetLevel(log.INFO)

	if t := os.Getenv("MODEL_TEMPERATURE"); t != "" {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			log.Fatalf("invalid MODEL_TEMPERATURE %q: %v", t, err)
		}
		srv.Temperature = f
	}

	addr := ":8080"
	if envAddr := os.Getenv("PORT"); envAddr != "" {
		addr = ":" + envAddr
	}

	finishedShutDown := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatal(err)
		}
		done()
		close(finishedShutDown)
	}()

	if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err)
	}
	<-finishedShutDown
}
