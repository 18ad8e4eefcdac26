// Package config handles loading and validation of rapidapi-setup configuration.
// It loads from a .env file, environment variables, and CLI flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultHistory = 10

// Config holds all application configuration.
type Config struct {
	EnvFile   string   // RAPIDAPI_SETUP_ENV_FILE
	DBPath    string   // RAPIDAPI_SETUP_DB_PATH
	LogLevel  string   // RAPIDAPI_SETUP_LOG_LEVEL
	DebugMode bool     // --debug flag (log to stdout)
	History   int      // --history [N]; 0 means not requested
	JSON      bool     // --json flag
	EnvKeys   []string // keys defined by the .env file, sorted

	fromEnvFile map[string]bool // config variables whose value came from the .env file
}

// flagValues holds parsed CLI flags.
type flagValues struct {
	envFile string
	db      string
	debug   bool
	json    bool
	history int
	histSet bool
}

// Load reads configuration from .env file, environment variables, and CLI flags.
// Flags take precedence over environment variables, which take precedence
// over the .env file.
func Load() (*Config, error) {
	return loadWithArgs(os.Args[1:])
}

// loadWithArgs loads config with specific arguments (for testing).
func loadWithArgs(args []string) (*Config, error) {
	flags := &flagValues{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--debug":
			flags.debug = true
		case arg == "--json":
			flags.json = true
		case strings.HasPrefix(arg, "--env-file="):
			flags.envFile = strings.TrimPrefix(arg, "--env-file=")
		case arg == "--env-file":
			if i+1 < len(args) {
				flags.envFile = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--db="):
			flags.db = strings.TrimPrefix(arg, "--db=")
		case arg == "--db":
			if i+1 < len(args) {
				flags.db = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--history="):
			v, err := strconv.Atoi(strings.TrimPrefix(arg, "--history="))
			if err != nil {
				return nil, fmt.Errorf("invalid --history value: %w", err)
			}
			flags.history, flags.histSet = v, true
		case arg == "--history":
			flags.history, flags.histSet = defaultHistory, true
			if i+1 < len(args) {
				if v, err := strconv.Atoi(args[i+1]); err == nil {
					flags.history = v
					i++
				}
			}
		}
	}

	return loadFromEnvAndFlags(flags)
}

// loadFromEnvAndFlags combines the .env file, environment variables and CLI flags.
func loadFromEnvAndFlags(flags *flagValues) (*Config, error) {
	cfg := &Config{}

	// Env file location cannot itself come from the env file
	if flags.envFile != "" {
		cfg.EnvFile = flags.envFile
	} else if env := os.Getenv("RAPIDAPI_SETUP_ENV_FILE"); env != "" {
		cfg.EnvFile = env
	} else {
		cfg.EnvFile = ".env"
	}

	keys, supplied, err := loadEnvFile(cfg.EnvFile)
	if err != nil {
		return nil, err
	}
	cfg.EnvKeys = keys
	cfg.fromEnvFile = map[string]bool{
		"RAPIDAPI_SETUP_DB_PATH":   flags.db == "" && supplied["RAPIDAPI_SETUP_DB_PATH"],
		"RAPIDAPI_SETUP_LOG_LEVEL": supplied["RAPIDAPI_SETUP_LOG_LEVEL"],
	}

	if flags.db != "" {
		cfg.DBPath = flags.db
	} else {
		cfg.DBPath = os.Getenv("RAPIDAPI_SETUP_DB_PATH")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("RAPIDAPI_SETUP_LOG_LEVEL"))
	cfg.DebugMode = flags.debug
	cfg.JSON = flags.json
	if flags.histSet {
		cfg.History = flags.history
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if flags.histSet && cfg.History == 0 {
		return nil, fmt.Errorf("history must be between 1 and 1000")
	}

	return cfg, nil
}

// loadEnvFile applies path to the process environment without overriding
// variables that are already set. It returns the sorted keys defined by the
// file and the subset the file actually supplied. A missing file is not an error.
func loadEnvFile(path string) ([]string, map[string]bool, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	supplied := make(map[string]bool, len(values))
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
		if _, set := os.LookupEnv(k); !set {
			supplied[k] = true
		}
	}
	sort.Strings(keys)

	if err := godotenv.Load(path); err != nil {
		return nil, nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return keys, supplied, nil
}

// applyDefaults sets default values for empty config fields.
func (c *Config) applyDefaults() {
	if c.EnvFile == "" {
		c.EnvFile = ".env"
	}
	if c.DBPath == "" {
		c.DBPath = "./rapidapi-setup.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("RAPIDAPI_SETUP_LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}

	if c.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}

	if c.History < 0 || c.History > 1000 {
		return fmt.Errorf("history must be between 1 and 1000")
	}

	return nil
}

// String returns a printable representation of the config. Values read from
// the .env file are never included, only their keys.
func (c *Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Config{\n")
	fmt.Fprintf(&sb, "  EnvFile: %s,\n", c.EnvFile)
	fmt.Fprintf(&sb, "  EnvKeys: [%s],\n", strings.Join(c.EnvKeys, ", "))
	fmt.Fprintf(&sb, "  DBPath: %s,\n", c.display("RAPIDAPI_SETUP_DB_PATH", c.DBPath))
	fmt.Fprintf(&sb, "  LogLevel: %s,\n", c.display("RAPIDAPI_SETUP_LOG_LEVEL", c.LogLevel))
	fmt.Fprintf(&sb, "  DebugMode: %v,\n", c.DebugMode)
	fmt.Fprintf(&sb, "  History: %d,\n", c.History)
	fmt.Fprintf(&sb, "  JSON: %v,\n", c.JSON)
	fmt.Fprintf(&sb, "}")
	return sb.String()
}

// display masks values that were read from the .env file.
func (c *Config) display(key, value string) string {
	if c.fromEnvFile[key] {
		return "(from .env)"
	}
	return value
}

// LogWriter returns the appropriate log destination based on debug mode.
// In debug mode: returns os.Stdout
// Otherwise: returns a file handle to .rapidapi-setup.log next to the database
func (c *Config) LogWriter() (io.Writer, error) {
	if c.DebugMode {
		return os.Stdout, nil
	}

	dir := filepath.Dir(c.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logPath := filepath.Join(dir, ".rapidapi-setup.log")

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}
