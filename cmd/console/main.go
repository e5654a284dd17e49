// Command console is a local operator console for the context composer
// and model router: it reads messages on stdin, routes each one to a
// model tier, assembles the full turn prompt against the redis-backed
// store, and prints the result. The actual model invocation is owned by
// the request-handling layer and is deliberately absent here.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stillpoint-hq/stillpoint/internal/config"
	"github.com/stillpoint-hq/stillpoint/internal/files"
	"github.com/stillpoint-hq/stillpoint/internal/prompt"
	"github.com/stillpoint-hq/stillpoint/internal/router"
	"github.com/stillpoint-hq/stillpoint/internal/store"
)

const (
	messageHistoryLimit = 500
	staleSectionMaxAge  = 30 * 24 * time.Hour
	requestTimeout      = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	clientID := flag.String("client", "", "Client ID to converse as")
	threadID := flag.String("thread", "", "Thread ID for the conversation")
	asCoach := flag.Bool("coach", false, "Send messages as the coach instead of the client")
	mode := flag.String("mode", "turn", "Assembly mode: turn, consultation, or opening")
	flag.Parse()

	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	logger := log.With().Str("component", "console").Logger()

	if *clientID == "" {
		logger.Fatal().Msg("-client is required")
	}

	logger.Info().Str("path", *configPath).Msg("Loading configuration...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	client, err := store.NewClient(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer client.Close()

	st := store.NewStore(client, messageHistoryLimit)
	parser := files.NewParser(cfg.Files.Root, cfg.Files.MaxFileBytes, log.Logger)

	assembler := prompt.NewAssembler(prompt.Sources{
		Prompts:       st,
		Methodologies: st,
		Library:       st,
		Documents:     st,
		Gaps:          prompt.NewStalenessAnalyzer(staleSectionMaxAge),
		Exercises:     st,
		Messages:      st,
		Files:         parser,
	}, log.Logger)

	rt := router.New(modelMap(cfg, logger))
	counter := prompt.NewTiktokenCounter()

	// Hot-reload the routing table on config changes.
	watcher, err := config.NewWatcher(*configPath, func(newCfg *config.Config) error {
		rt.SetModels(modelMap(newCfg, logger))
		return nil
	}, log.With().Str("component", "config").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create config watcher")
	}
	watcher.Start()
	defer watcher.Stop()

	switch *mode {
	case "turn":
		if *threadID == "" {
			logger.Fatal().Msg("-thread is required in turn mode")
		}
		runTurnLoop(logger, assembler, rt, counter, st, *clientID, *threadID, *asCoach)
	case "consultation":
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		systemPrompt, err := assembler.AssembleConsultation(ctx, *clientID)
		if err != nil {
			logger.Fatal().Err(err).Msg("Consultation assembly failed")
		}
		printPrompt(systemPrompt, counter)
	case "opening":
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		systemPrompt, err := assembler.AssembleOpening(ctx, *clientID)
		if err != nil {
			logger.Fatal().Err(err).Msg("Opening assembly failed")
		}
		printPrompt(systemPrompt, counter)
	default:
		logger.Fatal().Str("mode", *mode).Msg("Unknown mode")
	}
}

func runTurnLoop(logger zerolog.Logger, assembler *prompt.Assembler, rt *router.Router, counter *prompt.TiktokenCounter, st *store.Store, clientID, threadID string, asCoach bool) {
	speaker := prompt.SpeakerClient
	if asCoach {
		speaker = prompt.SpeakerCoach
	}

	fmt.Println("Type a message and press enter. Ctrl+D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		message := scanner.Text()
		if message == "" {
			continue
		}

		decision := rt.Route(message)
		fmt.Printf("\n[route] tier=%s model=%s/%s — %s\n",
			decision.Tier, decision.Provider, decision.Model, decision.Reasoning)

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		assembled, err := assembler.AssembleTurn(ctx, prompt.TurnInput{
			ClientID:  clientID,
			ThreadID:  threadID,
			Message:   message,
			Speaker:   speaker,
			Persisted: false,
		})
		if err != nil {
			cancel()
			logger.Error().Err(err).Msg("Assembly failed")
			continue
		}

		printPrompt(assembled.SystemPrompt, counter)
		fmt.Printf("[history] %d turns, estimated %d tokens total\n",
			len(assembled.History), assembled.EstimatedTokens)

		if err := st.AppendMessage(ctx, clientID, threadID, prompt.Turn{
			Speaker: speaker,
			Content: message,
		}); err != nil {
			logger.Error().Err(err).Msg("Failed to persist message")
		}
		cancel()
	}

	if err := scanner.Err(); err != nil {
		logger.Error().Err(err).Msg("Input error")
	}
}

func printPrompt(systemPrompt string, counter *prompt.TiktokenCounter) {
	fmt.Println("\n========== SYSTEM PROMPT ==========")
	fmt.Println(systemPrompt)
	fmt.Println("===================================")
	fmt.Printf("[tokens] estimated=%d tokenized=%d\n",
		prompt.EstimateTokens(systemPrompt), counter.Count(systemPrompt))
}

// modelMap builds the router's tier assignments from validated config
// references. Validation already guaranteed each non-empty reference
// resolves, so parse failures here only happen on hot reload races and
// fall back to the tier default.
func modelMap(cfg *config.Config, logger zerolog.Logger) router.ModelMap {
	m := router.ModelMap{}
	for tier, ref := range map[router.Tier]string{
		router.TierFast:     cfg.Routing.Fast,
		router.TierBalanced: cfg.Routing.Balanced,
		router.TierDeep:     cfg.Routing.Deep,
	} {
		if ref == "" {
			continue
		}
		provider, model, err := cfg.ResolveModel(ref)
		if err != nil {
			logger.Warn().Err(err).Str("tier", string(tier)).Msg("Unresolvable routing reference, using default")
			continue
		}
		m[tier] = router.ModelRef{Provider: provider.Name, Model: model.ID}
	}
	return m
}
