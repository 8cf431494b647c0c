package main

import (
	"context"
	"os"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/api"
	"github.com/Conceptual-Machines/choreo-api/internal/audio"
	"github.com/Conceptual-Machines/choreo-api/internal/choreography"
	"github.com/Conceptual-Machines/choreo-api/internal/config"
	"github.com/Conceptual-Machines/choreo-api/internal/llm"
	"github.com/Conceptual-Machines/choreo-api/internal/logger"
	"github.com/Conceptual-Machines/choreo-api/internal/metrics"
	"github.com/Conceptual-Machines/choreo-api/internal/observability"
	"github.com/Conceptual-Machines/choreo-api/internal/prompt"
	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const sentryFlushTimeout = 2 * time.Second

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	os.Exit(run())
}

func run() int {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet
		_, _ = os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		return 1
	}

	if err := logger.Init(cfg.Environment); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		return 1
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("No .env file found, using environment variables", nil)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "choreo-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            !cfg.IsProduction(),
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			logger.Warn("Failed to initialize Sentry", logger.Fields{"error": err.Error()})
		} else {
			logger.Info("Sentry initialized", logger.Fields{
				"environment": cfg.Environment,
				"release":     releaseVersion,
			})
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		logger.Warn("Sentry not configured (SENTRY_DSN not set)", nil)
	}

	ctx := context.Background()

	vocab, err := vocabulary.Default()
	if err != nil {
		logger.Error("Failed to load vocabulary", err, nil)
		return 1
	}

	analyzer, err := audio.NewAnalyzer(cfg.AnalyzerMode, cfg.PythonBinary, cfg.AnalyzerScript)
	if err != nil {
		logger.Error("Failed to create beat analyzer", err, nil)
		return 1
	}

	var oracle choreography.Completer
	oracleModel := ""
	if built, err := buildOracle(ctx, cfg); err != nil {
		logger.Warn("Generation oracle unavailable, every segment will use the fallback", logger.Fields{
			"model":    cfg.Model,
			"provider": cfg.Provider,
			"error":    err.Error(),
		})
	} else {
		oracle = built
		oracleModel = built.Model()
		logger.Info("Generation oracle configured", logger.Fields{
			"model":    built.Model(),
			"provider": built.ProviderName(),
		})
	}

	cloudwatch, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		logger.Warn("CloudWatch metrics disabled", logger.Fields{"error": err.Error()})
	}
	recorder := metrics.Multi{metrics.NewSentryMetrics()}
	if cloudwatch != nil {
		recorder = append(recorder, cloudwatch)
	}

	tracer := observability.InitializeLangfuse(ctx, cfg)

	orchestrator := choreography.NewOrchestrator(vocab, oracle, choreography.Settings{
		BeatsPerSegment: cfg.BeatsPerSegment,
		CandidateCount:  cfg.CandidateCount,
		MovesPerSegment: cfg.MovesPerSegment,
		MaxAttempts:     cfg.MaxAttempts,
		RetryBackoff:    cfg.RetryBackoff,
	}, choreography.WithRecorder(recorder), choreography.WithTracer(tracer))

	service := choreography.NewService(orchestrator, analyzer, cfg.BatchConcurrency)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(cfg, api.Dependencies{
		Service:      service,
		Vocabulary:   vocab,
		Recorder:     recorder,
		OracleModel:  oracleModel,
		AnalyzerName: analyzer.Name(),
	}, GetVersion())

	logger.Info("Starting server", logger.Fields{"port": cfg.Port, "version": releaseVersion})
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("Failed to start server", err, logger.Fields{"port": cfg.Port})
		return 1
	}
	return 0
}

// buildOracle wires the configured provider into a schema-constrained oracle
func buildOracle(ctx context.Context, cfg *config.Config) (*llm.Oracle, error) {
	factory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey, cfg.OllamaURL)
	provider, err := factory.GetProvider(ctx, cfg.Model, cfg.Provider)
	if err != nil {
		return nil, err
	}

	systemPrompt, err := prompt.NewPromptLoader().GetSystemPrompt()
	if err != nil {
		return nil, err
	}

	return llm.NewOracle(provider, cfg.Model,
		llm.WithSystemPrompt(systemPrompt),
		llm.WithOutputSchema(llm.ChoreographyOutputSchema()),
		llm.WithParams(llm.GenerationParams{
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			PresencePenalty:  cfg.PresencePenalty,
			FrequencyPenalty: cfg.FrequencyPenalty,
			MaxOutputTokens:  cfg.MaxOutputTokens,
		}),
		llm.WithTimeout(cfg.OracleTimeout),
	), nil
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
