package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playcache/internal/repositories"
	"github.com/desertthunder/playcache/internal/services"
	"github.com/desertthunder/playcache/internal/shared"
	"github.com/desertthunder/playcache/internal/tasks"
	"github.com/desertthunder/playcache/internal/transfer"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // skips config file and environment resolution when set
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, uiCommand, serveCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// resolveConfig returns the effective configuration for cmd: file, then environment, then flags.
func (r *Runner) resolveConfig(cmd *cli.Command) (*shared.Config, error) {
	var config shared.Config
	if r.config != nil {
		config = *r.config
	} else {
		loaded, err := shared.ResolveConfig(cmd.String("config"), cmd.String("env"))
		if err != nil {
			return nil, err
		}
		config = *loaded
	}

	if v := cmd.String("manifest"); v != "" {
		config.Sync.ManifestURL = v
	}
	if v := cmd.String("cache-dir"); v != "" {
		config.Sync.CacheDir = v
	}
	if v := cmd.String("strategy"); v != "" {
		config.Sync.Strategy = v
	}
	if v := cmd.String("log-level"); v != "" {
		config.Logging.Level = v
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Logging.Level))
	return &config, nil
}

// newStrategy builds the acquisition strategy named by config. The returned func releases it.
func (r *Runner) newStrategy(config *shared.Config) (transfer.Strategy, func()) {
	if config.Sync.Strategy == shared.StrategyPoll {
		queue := transfer.NewLocalQueue(r.httpClient, config.Sync.ChunkSize, config.Sync.TransferTimeout, r.logger)
		poller := transfer.NewPoller(queue, config.Sync.PollInterval, r.logger)
		return poller, func() { queue.Close() }
	}

	streamer := transfer.NewStreamer(transfer.StreamerOpts{
		Client:        r.httpClient,
		ChunkSize:     config.Sync.ChunkSize,
		MaxConcurrent: config.Sync.MaxConcurrent,
		StartRate:     config.Sync.StartRate,
		Timeout:       config.Sync.TransferTimeout,
		Logger:        r.logger,
	})
	return streamer, func() {}
}

// newEngine wires the sync engine for config. Pass history is recorded when the database opens;
// otherwise passes still run, unrecorded.
func (r *Runner) newEngine(config *shared.Config) (*tasks.MediaEngine, func()) {
	strategy, release := r.newStrategy(config)
	opts := tasks.EngineOpts{
		Manifests: services.NewManifestService(r.httpClient, config.Sync.ManifestTimeout, r.logger),
		Strategy:  strategy,
		Logger:    r.logger,
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		r.logger.Warn("pass history disabled", "path", config.Database.Path, "error", err)
		return tasks.NewMediaEngine(opts), release
	}

	opts.Recorder = repositories.NewPassRecorder(repositories.NewSyncPassRepository(db))
	return tasks.NewMediaEngine(opts), func() {
		release()
		db.Close()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
