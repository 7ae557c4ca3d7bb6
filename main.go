package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"kleinwatch/dealwatcher/config"
	"kleinwatch/dealwatcher/internal/fetcher"
	"kleinwatch/dealwatcher/internal/matcher"
	"kleinwatch/dealwatcher/internal/search"
	"kleinwatch/dealwatcher/logger"
	"kleinwatch/dealwatcher/services/cache"
	"kleinwatch/dealwatcher/services/notify"
	"kleinwatch/dealwatcher/services/seenstore"
	"kleinwatch/dealwatcher/services/worker"
)

// stringList is a repeatable string flag
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// priceFlag is an optional non-negative price flag; nil means unset
type priceFlag struct {
	value *float64
}

func (p *priceFlag) String() string {
	if p.value == nil {
		return ""
	}
	return strconv.FormatFloat(*p.value, 'f', -1, 64)
}

func (p *priceFlag) Set(raw string) error {
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return fmt.Errorf("invalid price %q", raw)
	}
	if v < 0 {
		return fmt.Errorf("price must not be negative")
	}
	p.value = &v
	return nil
}

var (
	notifyFlag = flag.Bool("notify", false, "Send notifications for new listings instead of just printing")
	clearSeen  = flag.Bool("clear-seen", false, "Clear the cache of already-seen listings before running")
	noEmail    = flag.Bool("no-email", false, "Disable email notifications (when -notify is set)")
	noPush     = flag.Bool("no-push", false, "Disable ntfy push notifications (when -notify is set)")
	noRedis    = flag.Bool("no-redis", false, "Disable redis stream publishing (when -notify is set)")

	minPrice  priceFlag
	maxPrice  priceFlag
	blacklist stringList
)

func init() {
	flag.Var(&minPrice, "min-price", "Minimum price in EUR (optional)")
	flag.Var(&maxPrice, "max-price", "Maximum price in EUR (optional)")
	flag.Var(&blacklist, "blacklist", "Additional case-insensitive substring to blacklist in titles. Can be specified multiple times")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] TERM [TERM...]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Each TERM can carry variants and a price range: 'a|b:MIN-MAX' or 'a:MIN'.")
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: at least one search term is required")
		flag.Usage()
		os.Exit(2)
	}

	specs, err := search.ParseTerms(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	if minPrice.value != nil && maxPrice.value != nil && *maxPrice.value < *minPrice.value {
		fmt.Fprintln(os.Stderr, "error: -max-price must not be below -min-price")
		flag.Usage()
		os.Exit(2)
	}

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Set up context cancelled on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Rate-limit blocks go to memcached when configured so they survive
	// across scheduler-spawned runs
	var cacheSvc cache.CacheService
	if cfg.MemcacheAddr != "" {
		cacheSvc = cache.NewMemcacheService(cfg.MemcacheAddr)
		log.Info().Str("addr", cfg.MemcacheAddr).Msg("Using memcached for rate-limit blocks")
	} else {
		cacheSvc = cache.NewMemoryService()
	}

	klein := fetcher.NewKleinanzeigenFetcher(cfg.KleinanzeigenURL, cfg.FetchTimeout, cfg.RateLimitBlock, cacheSvc)
	agg := matcher.New(klein, cfg.FetchDelay)

	store := seenstore.NewFileStore(cfg.SeenCachePath)
	if *clearSeen {
		if err := store.Clear(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear seen cache")
		} else {
			log.Info().Str("path", store.Path()).Msg("Cleared seen cache")
		}
	}

	dispatcher := notify.NewDispatcher(buildChannels(&cfg, log)...)
	defer dispatcher.Close()

	if *notifyFlag && dispatcher.Channels() == 0 {
		log.Warn().Msg("No notification channels configured; new listings are only recorded as seen")
	}

	w := worker.NewWorker(agg, store, dispatcher, *notifyFlag, os.Stdout)

	opts := matcher.Options{
		GlobalMin:      minPrice.value,
		GlobalMax:      maxPrice.value,
		ExtraBlacklist: blacklist,
	}

	if err := w.RunOnce(ctx, specs, opts); err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}
}

// buildChannels assembles the enabled notification channels. A channel
// missing required configuration is disabled with a warning rather than
// failing the run.
func buildChannels(cfg *config.Config, log *logger.Logger) []notify.Channel {
	if !*notifyFlag {
		return nil
	}

	var channels []notify.Channel

	if !*noEmail {
		if cfg.EmailConfigured() {
			channels = append(channels, notify.NewEmailChannel(notify.EmailConfig{
				From:        cfg.EmailFrom,
				To:          cfg.EmailTo,
				Host:        cfg.SMTPHost,
				Port:        cfg.SMTPPort,
				User:        cfg.SMTPUser,
				Password:    cfg.SMTPPassword,
				UseStartTLS: cfg.UseStartTLS,
				Timeout:     cfg.NotifyTimeout,
			}))
		} else {
			log.Warn().Msg("EMAIL_FROM/EMAIL_TO/SMTP_HOST not set; email channel disabled")
		}
	}

	if !*noPush {
		if cfg.PushConfigured() {
			channels = append(channels, notify.NewNtfyChannel(notify.NtfyConfig{
				URL:     cfg.NtfyURL,
				Topic:   cfg.NtfyTopic,
				Timeout: cfg.NotifyTimeout,
			}))
		} else {
			log.Warn().Msg("NTFY_URL/NTFY_TOPIC not set; push channel disabled")
		}
	}

	if !*noRedis && cfg.RedisConfigured() {
		channels = append(channels, notify.NewRedisChannel(notify.RedisConfig{
			Addr:            cfg.RedisAddr,
			DB:              cfg.RedisDB,
			StreamPrefix:    cfg.RedisStream,
			StreamCount:     cfg.RedisStreamCount,
			StreamMaxLength: cfg.RedisStreamMaxLength,
		}))
	}

	return channels
}
