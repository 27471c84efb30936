package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/veazyhq/visaflow/internal/api"
	"github.com/veazyhq/visaflow/internal/docparse"
	"github.com/veazyhq/visaflow/internal/flow"
	"github.com/veazyhq/visaflow/internal/genai"
	"github.com/veazyhq/visaflow/internal/kb"
	"github.com/veazyhq/visaflow/internal/lockfile"
	"github.com/veazyhq/visaflow/internal/messaging"
	"github.com/veazyhq/visaflow/internal/store"
	"github.com/veazyhq/visaflow/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for visaflow state data
	DefaultStateDir = "/var/lib/visaflow"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "visaflow.db"
	// DefaultKBDirName is the default knowledge base directory name under the state dir
	DefaultKBDirName = "knowledge_base"
	// DefaultAPIAddr is the default API server listen address
	DefaultAPIAddr = ":8080"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// File-backed stores cannot be shared between instances, so guard the
	// state directory with a lock. Postgres and Redis handle concurrency
	// themselves.
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		lock, err := lockfile.Acquire(*flags.stateDir)
		if err != nil {
			slog.Error("Failed to lock state directory", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	genAI, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		slog.Error("Failed to initialize GenAI client", "error", err)
		os.Exit(1)
	}

	knowledge, err := kb.New(kb.WithRoot(*flags.kbRoot))
	if err != nil {
		slog.Error("Failed to initialize knowledge base", "error", err)
		os.Exit(1)
	}

	msgService := buildMessagingService()
	parser := docparse.NewParser(genAI)
	stateManager := flow.NewStoreBasedStateManager(st)
	conversation := flow.NewConversationFlow(stateManager, genAI, knowledge, parser, buildCollectorOptions(flags, config)...)

	if *flags.cli {
		slog.Info("Starting visaflow in interactive CLI mode")
		if err := runCLI(ctx, conversation); err != nil {
			slog.Error("CLI session failed", "error", err)
			os.Exit(1)
		}
		return
	}

	server := api.NewServer(conversation, stateManager, parser, msgService)
	slog.Info("Bootstrapping visaflow API server", "addr", *flags.apiAddr)
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "kb_root", *flags.kbRoot, "messaging_enabled", msgService != nil)
	if err := server.Run(ctx, *flags.apiAddr); err != nil {
		slog.Error("visaflow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("visaflow exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	KBRoot      string
	OpenAIKey   string
	OpenAIModel string
	APIAddr     string
	RetryLimit  int
	ResetFields bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	kbRoot      *string
	openaiKey   *string
	openaiModel *string
	apiAddr     *string
	retryLimit  *int
	cli         *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("VISAFLOW_STATE_DIR"),
		KBRoot:      os.Getenv("KNOWLEDGE_BASE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		APIAddr:     os.Getenv("API_ADDR"),
		RetryLimit:  util.ParseIntEnv("VISAFLOW_RETRY_LIMIT", flow.DefaultRetryLimit),
		ResetFields: util.ParseBoolEnv("VISAFLOW_RESET_ON_EXHAUSTION", true),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No VISAFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("VISAFLOW_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	// Default knowledge base root lives under the state directory
	if config.KBRoot == "" {
		config.KBRoot = filepath.Join(config.StateDir, DefaultKBDirName)
		slog.Debug("No KNOWLEDGE_BASE_DIR set, using default", "kb_root", config.KBRoot)
	}

	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"VISAFLOW_STATE_DIR", config.StateDir,
		"KNOWLEDGE_BASE_DIR", config.KBRoot,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"VISAFLOW_RETRY_LIMIT", config.RetryLimit,
		"VISAFLOW_RESET_ON_EXHAUSTION", config.ResetFields)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for visaflow data (overrides $VISAFLOW_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "session store DSN: postgres://, redis://, or a SQLite file path (overrides $DATABASE_URL)"),
		kbRoot:      flag.String("kb-root", config.KBRoot, "knowledge base root directory (overrides $KNOWLEDGE_BASE_DIR)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		retryLimit:  flag.Int("retry-limit", config.RetryLimit, "consecutive extraction failures tolerated before giving up (overrides $VISAFLOW_RETRY_LIMIT)"),
		cli:         flag.Bool("cli", false, "run an interactive terminal session instead of the API server"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"kbRoot", *flags.kbRoot,
		"openaiKeySet", *flags.openaiKey != "",
		"openaiModel", *flags.openaiModel,
		"apiAddr", *flags.apiAddr,
		"retryLimit", *flags.retryLimit,
		"cli", *flags.cli)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	if err := os.MkdirAll(*flags.kbRoot, 0755); err != nil {
		slog.Error("Failed to create knowledge base directory", "error", err, "kb_root", *flags.kbRoot)
		return err
	}
	return nil
}

// buildStore constructs the session store backend matching the DSN type
func buildStore(flags Flags) (store.Store, error) {
	switch store.DetectDSNType(*flags.dbDSN) {
	case "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	case "redis":
		slog.Debug("Detected Redis DSN, configuring Redis store", "dsn_set", true)
		return store.NewRedisStore(store.WithDSN(*flags.dbDSN))
	default:
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
	}
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(openai.ChatModel(*flags.openaiModel)))
	}
	return genaiOpts
}

// buildCollectorOptions constructs collection engine configuration options
func buildCollectorOptions(flags Flags, config Config) []flow.CollectorOption {
	return []flow.CollectorOption{
		flow.WithRetryLimit(*flags.retryLimit),
		flow.WithResetFieldsOnExhaustion(config.ResetFields),
	}
}

// buildMessagingService constructs the WhatsApp messaging service when Twilio
// credentials are configured. Without credentials the webhook endpoint is
// disabled and the HTTP API remains the only channel.
func buildMessagingService() messaging.Service {
	if os.Getenv("TWILIO_ACCOUNT_SID") == "" {
		slog.Info("TWILIO_ACCOUNT_SID not set, WhatsApp messaging disabled")
		return nil
	}
	svc, err := messaging.NewTwilioService()
	if err != nil {
		slog.Error("Failed to initialize Twilio messaging service", "error", err)
		os.Exit(1)
	}
	return svc
}
