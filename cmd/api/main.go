package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/pcheng/callscribe/internal/config"
	"github.com/pcheng/callscribe/internal/handler"
	"github.com/pcheng/callscribe/internal/service/engine"
	"github.com/pcheng/callscribe/internal/service/notes"
	"github.com/pcheng/callscribe/internal/service/pipeline"
	"github.com/pcheng/callscribe/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Stores
	directory := store.NewMemoryDirectory(nil)
	signatures := store.NewSignatureStore(directory, cfg.Pipeline.DedupThreshold)
	noteStore := store.NewMemoryNotes()

	// Recognition engines, sidecar-backed when configured
	var faceEngine engine.FaceEngine = engine.NoopFaceEngine{}
	if cfg.Engine.FaceEnabled() {
		faceEngine = engine.NewHTTPFaceEngine(cfg.Engine.FaceURL, cfg.Engine.Timeout)
		log.Printf("face engine configured at %s", cfg.Engine.FaceURL)
	} else {
		log.Println("FACE_ENGINE_URL not set, face recognition disabled")
	}

	var speechEngine engine.SpeechEngine = engine.NoopSpeechEngine{}
	if cfg.Engine.SpeechEnabled() {
		speechEngine = engine.NewHTTPSpeechEngine(cfg.Engine.SpeechURL, cfg.Engine.Timeout)
		log.Printf("speech engine configured at %s", cfg.Engine.SpeechURL)
	} else {
		log.Println("SPEECH_ENGINE_URL not set, transcription disabled")
	}

	// Chat model for note synthesis, optional
	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			log.Println("continuing with fallback note extraction only")
			chatModel = nil
		} else {
			log.Println("chat model initialized successfully")
		}
	} else {
		log.Println("ark credentials not configured, using fallback note extraction")
	}

	synthesizer, err := notes.NewSynthesizer(ctx, chatModel)
	if err != nil {
		log.Fatalf("failed to build note synthesizer: %v", err)
	}

	// Pipeline
	hub := pipeline.NewHub()
	exec := pipeline.NewExecutor(faceEngine, speechEngine, signatures, directory, noteStore, synthesizer, hub,
		cfg.Pipeline.FaceMatchThreshold, cfg.Pipeline.VoiceMatchThreshold)
	dispatcher := pipeline.NewDispatcher(exec, hub, int64(cfg.Pipeline.Workers), cfg.Pipeline.QueueDepth)
	registry := pipeline.NewRegistry(dispatcher, cfg.Pipeline.IdleTimeout, cfg.Pipeline.SweepInterval)
	go registry.Run(ctx)

	router := handler.NewRouter(registry, hub, exec)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("callscribe backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
