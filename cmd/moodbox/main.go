// Package main provides the moodbox entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/app/filter"
	"github.com/osa030/moodbox/internal/app/notification"
	"github.com/osa030/moodbox/internal/app/playback"
	"github.com/osa030/moodbox/internal/app/session"
	"github.com/osa030/moodbox/internal/app/source"
	"github.com/osa030/moodbox/internal/domain/mood"
	"github.com/osa030/moodbox/internal/infra/config"
	"github.com/osa030/moodbox/internal/infra/logger"
	"github.com/osa030/moodbox/internal/infra/player"
	"github.com/osa030/moodbox/internal/infra/spotify"
)

var (
	app        = kingpin.New("moodbox", "Mood-based terminal jukebox")
	configPath = app.Flag("config", "Path to config file").Default("config/moodbox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	playCmd  = app.Command("play", "Build a queue for a mood and play it").Default()
	playMood = playCmd.Flag("mood", "Mood or emotion label (happy, sad, neutral, angry, excited, anxious, romantic)").Short('m').Default("neutral").String()
	noInput  = playCmd.Flag("no-input", "Do not read commands from stdin").Bool()

	moodsCmd = app.Command("moods", "List moods and exit")

	filtersCmd = app.Command("filters", "List available filters and exit")

	checkCmd = app.Command("check", "Validate config and track sources, then exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case moodsCmd.FullCommand():
		printMoods()
		return
	case filtersCmd.FullCommand():
		printFilters()
		return
	}

	loggerConfig := logger.Config{
		Output: "stderr",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func() { _ = closeLog() }()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkCmd.FullCommand() {
		if err := check(cfg); err != nil {
			zlog.Error().Msgf("Check failed: %v", err)
			os.Exit(1)
		}
		fmt.Println("config and track sources OK")
		return
	}

	m, err := mood.Parse(*playMood)
	if err != nil {
		zlog.Fatal().Msgf("Invalid mood: %v", err)
	}

	// Run in a separate function so deferred cleanup runs before exit
	if err := run(cfg, m); err != nil {
		zlog.Error().Msgf("moodbox error: %v", err)
		closeLog()
		os.Exit(1)
	}
}

// run starts mpv, plays the mood queue and serves stdin commands until quit, a signal or the session ends.
func run(cfg *config.Config, initial mood.Mood) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain, filters, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	mpv := player.NewMPV(player.MPVConfig{
		Path:       cfg.Player.MPVPath,
		SocketPath: cfg.Player.SocketPath,
		ExtraArgs:  cfg.Player.ExtraArgs,
	})
	controller := playback.NewController(mpv, session.ControllerConfig(cfg))

	if err := mpv.Start(ctx, controller); err != nil {
		controller.Close()
		return errors.Wrap(err, "failed to start mpv")
	}
	defer func() {
		if err := mpv.Close(); err != nil {
			zlog.Warn().Msgf("Failed to close mpv: %v", err)
		}
	}()

	sessionMgr := session.NewManager(cfg, controller, chain, filters)
	defer sessionMgr.Close()

	// Without stdin there is nothing left to do once the queue runs out.
	finishedCh := make(chan struct{}, 1)
	sessionMgr.GetNotificationManager().Subscribe(notification.StreamFunc(func(n *notification.Notification) error {
		printNotification(os.Stdout, n, len(sessionMgr.Status().Tracks))
		if *noInput && n.Event.Type == playback.EventQueueFinished && !cfg.Queue.Continuous {
			select {
			case finishedCh <- struct{}{}:
			default:
			}
		}
		return nil
	}))
	sessionMgr.Start()

	fmt.Printf("building a %s queue...\n", initial)
	if err := sessionMgr.Play(ctx, initial); err != nil {
		return errors.Wrapf(err, "failed to start %s queue", initial)
	}

	executeHooks(cfg.Hooks.OnStarted, "on_started")
	defer executeHooks(cfg.Hooks.OnStopped, "on_stopped")

	quitCh := make(chan struct{})
	if !*noInput {
		fmt.Println("type h for help")
		go readCommands(ctx, os.Stdin, sessionMgr, quitCh)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-quitCh:
		zlog.Info().Msg("Quit requested")
	case <-finishedCh:
		zlog.Info().Msg("Queue finished")
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended")
	case <-mpv.Done():
		return errors.New("mpv exited unexpectedly")
	}

	sessionMgr.Stop("shutdown")
	return nil
}

// buildPipeline creates the provider chain and filter chain from configuration.
func buildPipeline(ctx context.Context, cfg *config.Config) (*source.ProviderChain, *filter.Chain, error) {
	filters, err := filter.NewChainFromConfig(cfg.Filters)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid filter config")
	}

	var spotifyClient source.SpotifyClient
	if cfg.HasProvider(config.ProviderSpotifyPlaylist) {
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create Spotify client")
		}
		spotifyClient = client
	}

	chain, err := source.NewProviderChainFromConfig(cfg, spotifyClient)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create track providers")
	}

	for i, p := range chain.Providers() {
		zlog.Info().Msgf("Track source %d: %s (%s)", i+1, p.DisplayName, p.Provider.Name())
	}
	for _, f := range filters.Filters() {
		zlog.Info().Msgf("Filter enabled: %s", f.Name())
	}
	return chain, filters, nil
}

// check validates filters and verifies every provider upstream with retry.
func check(cfg *config.Config) error {
	ctx := context.Background()
	chain, _, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	const maxRetries = 3
	baseDelay := time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			delay := baseDelay * time.Duration(1<<uint(i-1))
			zlog.Info().Msgf("Retrying source check in %v...", delay)
			time.Sleep(delay)
		}
		if lastErr = chain.Check(ctx); lastErr == nil {
			zlog.Info().Msg("Track sources validated successfully")
			return nil
		}
		zlog.Warn().Msgf("Source check failed (attempt %d/%d): %v", i+1, maxRetries, lastErr)
	}
	return errors.Wrapf(lastErr, "failed after %d attempts", maxRetries)
}

// readCommands executes stdin lines until quit or EOF.
func readCommands(ctx context.Context, in io.Reader, j jukebox, quitCh chan<- struct{}) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			fmt.Println(err)
			continue
		}
		if execute(ctx, j, cmd, os.Stdout) {
			close(quitCh)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		zlog.Warn().Msgf("stdin: %v", err)
	}
	// EOF leaves playback running; use signals to stop.
}

// printNotification prints the events worth showing in the terminal.
func printNotification(out io.Writer, n *notification.Notification, total int) {
	e := n.Event
	switch e.Type {
	case playback.EventTrackChanged:
		if e.Track == nil {
			return
		}
		fmt.Fprintf(out, "♪ [%s %d/%d] %s", n.Mood, e.Index+1, total, e.Track.Label())
		if e.Track.Source != "" {
			fmt.Fprintf(out, " (%s)", e.Track.Source)
		}
		fmt.Fprintln(out)
	case playback.EventStateChanged:
		switch e.State.Phase {
		case playback.PhasePaused:
			fmt.Fprintln(out, "paused")
		case playback.PhaseFailed:
			fmt.Fprintf(out, "skipping: %s\n", e.State.Reason)
		}
	case playback.EventError:
		fmt.Fprintln(out, e.Message)
	case playback.EventQueueFinished:
		fmt.Fprintln(out, "queue finished (p, j or m to keep listening)")
	}
}

// printMoods prints the moods and the emotion labels mapped onto them.
func printMoods() {
	fmt.Println("Moods:")
	for _, m := range mood.All() {
		f := m.Features()
		fmt.Printf("  %-10s valence %.1f-%.1f energy %.1f-%.1f", m, f.Valence.Min, f.Valence.Max, f.Energy.Min, f.Energy.Max)
		if labels := m.Labels(); len(labels) > 0 {
			fmt.Printf(" [%s]", strings.Join(labels, ", "))
		}
		fmt.Println()
	}
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, name := range filter.RegisteredNames() {
		f := filter.GetRegistered()[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// sh -c allows redirection and pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
