package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"gitlab.com/dirk.krummacker/relationship-service/internal/assistant"
	"gitlab.com/dirk.krummacker/relationship-service/internal/auth"
	"gitlab.com/dirk.krummacker/relationship-service/internal/config"
	"gitlab.com/dirk.krummacker/relationship-service/internal/insight"
	"gitlab.com/dirk.krummacker/relationship-service/internal/llm"
	"gitlab.com/dirk.krummacker/relationship-service/internal/logx"
	"gitlab.com/dirk.krummacker/relationship-service/internal/prompt"
	"gitlab.com/dirk.krummacker/relationship-service/internal/service"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
)

type serviceConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	GinLogging      string        `envconfig:"GIN_LOGGING"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 AUTH_URL=https://auth.example.com LLM_API_KEY=sk-... GIN_MODE=release GIN_LOGGING=OFF go run main.go
func main() {
	logx.Init(*config.MustNew[logx.Config]("LOG"))
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("service stopped")
	}
}

func run() error {
	cfg := config.MustNew[serviceConfig]("")
	dbCfg := config.MustNew[store.Config]("")
	authCfg := config.MustNew[auth.Config]("")
	redisCfg := config.MustNew[auth.RedisConfig]("")
	llmCfg := config.MustNew[llm.Config]("LLM")
	assistantCfg := config.MustNew[assistant.Config]("ASSISTANT")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := store.Open(*dbCfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	st, err := store.New(sqlDB)
	if err != nil {
		return err
	}
	defer st.Close()

	var verifier auth.Verifier = auth.NewRemoteVerifier(*authCfg, nil)
	if redisCfg.Host != "" {
		cache, err := auth.NewRedisCache(ctx, *redisCfg)
		if err != nil {
			log.Warn().Err(err).Str("host", redisCfg.Host).Msg("session cache unavailable, verifying every request")
		} else {
			defer cache.Close()
			verifier = auth.NewCachedVerifier(verifier, cache, authCfg.CacheTTL)
		}
	}

	// Without credentials the service runs, but the AI endpoints answer with an error.
	var chatModel llm.ChatModel
	if m, err := llm.New(*llmCfg); err != nil {
		log.Warn().Err(err).Msg("AI features are disabled")
	} else {
		chatModel = m
	}

	prompts := prompt.MustLoad()
	registry, err := assistant.NewRegistry(assistant.Tools(st)...)
	if err != nil {
		return err
	}

	router := service.SetupHttpRouter(service.Options{
		Store:          st,
		Verifier:       verifier,
		CookieName:     authCfg.CookieName,
		Assistant:      assistant.New(chatModel, registry, prompts, *assistantCfg),
		Insights:       insight.New(st, chatModel, prompts),
		RequestLogging: !strings.EqualFold(cfg.GinLogging, "off"),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
