package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	offlinecache "github.com/neurospeech/offline-cache"
	"github.com/neurospeech/offline-cache/bgsync"
	"github.com/neurospeech/offline-cache/cache"
	"github.com/neurospeech/offline-cache/lifecycle"
	"github.com/neurospeech/offline-cache/prompt"
	"github.com/neurospeech/offline-cache/push"
)

var (
	configFilenameFlag string
	originFlag         string
	portFlag           int
	generationFlag     string
	providerFlag       string
	dbFilenameFlag     string
	verbosityTraceFlag bool
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to (overrides config)")
	flag.IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	flag.StringVar(&generationFlag, "generation", "", "Cache generation identifier (overrides config)")
	flag.StringVar(&providerFlag, "provider", "", "Caching provider to use (overrides config)")
	flag.StringVar(&dbFilenameFlag, "db", "", "Cache DB file name (overrides config)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
}

func main() {
	flag.Parse()

	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).Output(zerolog.ConsoleWriter{Out: os.Stdout})

	config, err := getConfig(configFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read config")
	}
	if originFlag != "" {
		config.Origin = originFlag
	}
	if portFlag != 0 {
		config.Port = portFlag
	}
	if generationFlag != "" {
		config.Generation = generationFlag
	}
	if providerFlag != "" {
		config.Provider = providerFlag
	}
	if dbFilenameFlag != "" {
		config.DBFilename = dbFilenameFlag
	}
	if config.Origin == "" {
		log.Fatal().Msg("Please specify origin")
	}

	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not parse origin url")
	}

	var provider cache.Provider
	switch config.Provider {
	case "sqlite":
		provider = cache.NewSQLiteCache(config.DBFilename)
	case "memory":
		provider = cache.NewMemCache()
	case "bigcache":
		provider = cache.NewBigCacheProvider()
	default:
		log.Fatal().Msgf("Unsupported cache provider: %s", config.Provider)
	}

	worker := offlinecache.New(offlinecache.Config{
		Cache:       provider,
		OriginURL:   *originURL,
		Generation:  config.Generation,
		Precache:    config.Precache,
		Exclude:     config.Exclude,
		OfflinePath: config.OfflinePath,
		Logger:      &log.Logger,
	})

	syncRegistry := bgsync.NewRegistry(log.Logger)
	for _, tag := range config.SyncTags {
		syncRegistry.Register(tag, bgsync.NoopTask)
	}

	notifications := push.NewManager(push.Defaults{
		Title: config.Push.Title,
		Body:  config.Push.Body,
		Icon:  config.Push.Icon,
		Badge: config.Push.Badge,
	}, push.LogNotifier{Log: log.Logger}, log.Logger)

	registry := lifecycle.NewRegistry()
	worker.RegisterLifecycle(registry)
	registry.Register(lifecycle.Sync, func(ctx context.Context, ev lifecycle.Event) error {
		return syncRegistry.Trigger(ctx, ev.Tag)
	})
	registry.Register(lifecycle.Push, func(ctx context.Context, ev lifecycle.Event) error {
		_, err := notifications.Receive(ctx, ev.Data)
		return err
	})

	// install populates the app shell, activation drops stale generations;
	// traffic is only served once both have completed
	ctx := context.Background()
	if err := registry.Dispatch(ctx, lifecycle.Event{Kind: lifecycle.Install}); err != nil {
		log.Fatal().Err(err).Msg("Install failed")
	}
	if err := registry.Dispatch(ctx, lifecycle.Event{Kind: lifecycle.Activate}); err != nil {
		log.Fatal().Err(err).Msg("Activate failed")
	}

	mgmt := newManagementRouter(management{
		registry:      registry,
		notifications: notifications,
		prompt:        prompt.NewHolder(),
		provider:      provider,
	})
	go func() {
		log.Info().Int("port", config.ManagementPort).Msg("Management API listening")
		if err := http.ListenAndServe(fmt.Sprintf(":%d", config.ManagementPort), mgmt); err != nil {
			log.Fatal().Err(err).Msg("Management server failed")
		}
	}()

	handler := hlog.NewHandler(log.Logger)(worker)
	log.Info().
		Int("port", config.Port).
		Str("origin", config.Origin).
		Str("generation", config.Generation).
		Msg("Intercepting")
	if err := http.ListenAndServe(fmt.Sprintf(":%d", config.Port), handler); err != nil {
		panic(err)
	}
}
