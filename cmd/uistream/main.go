// Command uistream serves a chat endpoint that streams agent responses to
// browser clients using the UI message stream protocol over SSE.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	"goa.design/clue/log"
	"goa.design/pulse/rmap"
	"golang.org/x/time/rate"

	"goa.design/uistream/features/model/anthropic"
	"goa.design/uistream/features/model/middleware"
	streampulse "goa.design/uistream/features/stream/pulse"
	clientspulse "goa.design/uistream/features/stream/pulse/clients/pulse"
	"goa.design/uistream/runtime/agent/model"
	"goa.design/uistream/runtime/agent/telemetry"
	"goa.design/uistream/runtime/uistream/builder"
)

// limitsMapName names the replicated map holding shared token budgets.
const limitsMapName = "uistream-limits"

func main() {
	var (
		configF = flag.String("config", "", "Path to a YAML configuration file")
		addrF   = flag.String("addr", "", "HTTP listen address (overrides configuration)")
		agentF  = flag.String("agent", "", "Agent backend: echo or anthropic (overrides configuration)")
		modelF  = flag.String("model", "", "Anthropic model identifier (overrides configuration)")
		redisF  = flag.String("redis-addr", "", "Redis address enabling the stream mirror (overrides configuration)")
		dbgF    = flag.Bool("debug", false, "Log request and response bodies")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	cfg, err := loadConfig(*configF)
	if err != nil {
		log.Fatal(ctx, err)
	}
	cfg.override(*addrF, *agentF, *modelF, *redisF)
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if err := cfg.validate(); err != nil {
		log.Fatal(ctx, err)
	}
	log.Print(ctx, log.KV{K: "addr", V: cfg.HTTP.Addr}, log.KV{K: "agent", V: cfg.Agent.Backend})

	agent, err := newAgent(cfg)
	if err != nil {
		log.Fatalf(ctx, err, "failed to create %s agent", cfg.Agent.Backend)
	}
	chat := &chatServer{
		newBuilder: func() *builder.Builder { return builder.New() },
		logger:     telemetry.NewClueLogger(),
		metrics:    telemetry.NewClueMetrics(),
		tracer:     telemetry.NewClueTracer(),
	}
	if rps := cfg.Limits.RequestsPerSecond; rps > 0 {
		chat.admit = rate.NewLimiter(rate.Limit(rps), max(cfg.Limits.Burst, 1))
	}

	var limits *rmap.Map
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf(ctx, err, "failed to connect to redis at %s", cfg.Redis.Addr)
		}
		pc, err := clientspulse.New(clientspulse.Options{Redis: rdb, StreamMaxLen: cfg.Redis.StreamMaxLen})
		if err != nil {
			log.Fatal(ctx, err)
		}
		chat.publisher, err = streampulse.NewPublisher(streampulse.Options{
			Client:    pc,
			Retention: cfg.Redis.Retention,
			Logger:    chat.logger,
		})
		if err != nil {
			log.Fatal(ctx, err)
		}
		if chat.follower, err = streampulse.NewSubscriber(streampulse.SubscriberOptions{Client: pc}); err != nil {
			log.Fatal(ctx, err)
		}
		if limits, err = rmap.Join(ctx, limitsMapName, rdb); err != nil {
			log.Fatalf(ctx, err, "failed to join %s map", limitsMapName)
		}
		defer limits.Close()
		log.Printf(ctx, "mirroring chat streams to redis at %s", cfg.Redis.Addr)
	}
	if tpm := cfg.Limits.TokensPerMinute; tpm > 0 {
		l := middleware.NewAdaptiveRateLimiter(ctx, limits, cfg.Anthropic.Model, tpm, cfg.Limits.MaxTokensPerMinute)
		agent = l.Wrap(agent)
	}
	chat.agent = agent

	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)

	handleHTTPServer(ctx, cfg.HTTP, newHandler(ctx, chat, *dbgF), &wg, errc)

	// Wait for signal.
	log.Printf(ctx, "exiting (%v)", <-errc)

	cancel()

	wg.Wait()
	log.Printf(ctx, "exited")
}

func newAgent(cfg config) (model.Agent, error) {
	switch cfg.Agent.Backend {
	case backendAnthropic:
		a := cfg.Anthropic
		tools, err := toolDefinitions(a.Tools)
		if err != nil {
			return nil, err
		}
		return anthropic.NewFromAPIKey(a.APIKey, anthropic.Options{
			Model:          a.Model,
			MaxTokens:      a.MaxTokens,
			Temperature:    a.Temperature,
			ThinkingBudget: a.ThinkingBudget,
			System:         a.System,
			Tools:          tools,
		})
	case backendEcho:
		return echoAgent{}, nil
	default:
		return nil, fmt.Errorf("unknown agent backend %q", cfg.Agent.Backend)
	}
}

func toolDefinitions(tools []toolConfig) ([]anthropic.ToolDefinition, error) {
	defs := make([]anthropic.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		def := anthropic.ToolDefinition{Name: t.Name, Description: t.Description}
		if t.InputSchema != nil {
			schema, err := json.Marshal(t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("tool %q input schema: %w", t.Name, err)
			}
			def.InputSchema = schema
		}
		defs = append(defs, def)
	}
	return defs, nil
}
