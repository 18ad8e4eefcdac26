package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// unsetForTest unsets keys for the duration of the test and restores them
// afterwards, including values written by godotenv.
func unsetForTest(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func cleanEnv(t *testing.T) {
	t.Helper()
	unsetForTest(t, "RAPIDAPI_SETUP_ENV_FILE", "RAPIDAPI_SETUP_DB_PATH", "RAPIDAPI_SETUP_LOG_LEVEL")
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestConfig_DefaultValues(t *testing.T) {
	cleanEnv(t)
	t.Setenv("RAPIDAPI_SETUP_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := loadWithArgs(nil)
	if err != nil {
		t.Fatalf("loadWithArgs() failed: %v", err)
	}

	if cfg.DBPath != "./rapidapi-setup.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./rapidapi-setup.db")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.DebugMode {
		t.Error("DebugMode should default to false")
	}
	if cfg.History != 0 {
		t.Errorf("History = %d, want 0", cfg.History)
	}
	if len(cfg.EnvKeys) != 0 {
		t.Errorf("EnvKeys = %v, want none for a missing file", cfg.EnvKeys)
	}
}

func TestConfig_LoadsFromEnv(t *testing.T) {
	cleanEnv(t)
	t.Setenv("RAPIDAPI_SETUP_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("RAPIDAPI_SETUP_DB_PATH", "/tmp/env.db")
	t.Setenv("RAPIDAPI_SETUP_LOG_LEVEL", "DEBUG")

	cfg, err := loadWithArgs(nil)
	if err != nil {
		t.Fatalf("loadWithArgs() failed: %v", err)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/env.db")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestConfig_LoadsFromEnvFile(t *testing.T) {
	cleanEnv(t)
	unsetForTest(t, "RAPIDAPI_TEST_EXTRA")
	path := writeEnvFile(t, "RAPIDAPI_SETUP_DB_PATH=/tmp/dotenv.db\nRAPIDAPI_SETUP_LOG_LEVEL=warn\nRAPIDAPI_TEST_EXTRA=secret-value\n")

	cfg, err := loadWithArgs([]string{"--env-file", path})
	if err != nil {
		t.Fatalf("loadWithArgs() failed: %v", err)
	}
	if cfg.EnvFile != path {
		t.Errorf("EnvFile = %q, want %q", cfg.EnvFile, path)
	}
	if cfg.DBPath != "/tmp/dotenv.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/dotenv.db")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}

	want := []string{"RAPIDAPI_SETUP_DB_PATH", "RAPIDAPI_SETUP_LOG_LEVEL", "RAPIDAPI_TEST_EXTRA"}
	if strings.Join(cfg.EnvKeys, ",") != strings.Join(want, ",") {
		t.Errorf("EnvKeys = %v, want %v", cfg.EnvKeys, want)
	}
	if os.Getenv("RAPIDAPI_TEST_EXTRA") != "secret-value" {
		t.Error("env file values should be exported to the process environment")
	}
}

func TestConfig_EnvOverridesEnvFile(t *testing.T) {
	cleanEnv(t)
	path := writeEnvFile(t, "RAPIDAPI_SETUP_DB_PATH=/tmp/dotenv.db\n")
	t.Setenv("RAPIDAPI_SETUP_ENV_FILE", path)
	t.Setenv("RAPIDAPI_SETUP_DB_PATH", "/tmp/env.db")

	cfg, err := loadWithArgs(nil)
	if err != nil {
		t.Fatalf("loadWithArgs() failed: %v", err)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/env.db")
	}
}

func TestConfig_FlagOverridesEnv(t *testing.T) {
	cleanEnv(t)
	t.Setenv("RAPIDAPI_SETUP_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("RAPIDAPI_SETUP_DB_PATH", "/tmp/env.db")

	cfg, err := loadWithArgs([]string{"--db", "/tmp/flag.db", "--debug", "--json"})
	if err != nil {
		t.Fatalf("loadWithArgs() failed: %v", err)
	}
	if cfg.DBPath != "/tmp/flag.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/flag.db")
	}
	if !cfg.DebugMode {
		t.Error("DebugMode should be true when --debug flag is set")
	}
	if !cfg.JSON {
		t.Error("JSON should be true when --json flag is set")
	}
}

func TestConfig_EqualsSyntax(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()

	cfg, err := loadWithArgs([]string{"--env-file=" + filepath.Join(dir, "absent.env"), "--db=" + filepath.Join(dir, "x.db"), "--history=25"})
	if err != nil {
		t.Fatalf("loadWithArgs() failed: %v", err)
	}
	if cfg.DBPath != filepath.Join(dir, "x.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.History != 25 {
		t.Errorf("History = %d, want 25", cfg.History)
	}
}

func TestConfig_History(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"bare flag uses default", []string{"--history"}, 10, false},
		{"bare flag before other flag", []string{"--history", "--debug"}, 10, false},
		{"separate value", []string{"--history", "3"}, 3, false},
		{"max", []string{"--history=1000"}, 1000, false},
		{"zero", []string{"--history=0"}, 0, true},
		{"negative", []string{"--history=-1"}, 0, true},
		{"too large", []string{"--history", "1001"}, 0, true},
		{"not a number", []string{"--history=many"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t)
			t.Setenv("RAPIDAPI_SETUP_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

			cfg, err := loadWithArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("loadWithArgs(%v) should fail", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadWithArgs(%v) failed: %v", tt.args, err)
			}
			if cfg.History != tt.want {
				t.Errorf("History = %d, want %d", cfg.History, tt.want)
			}
		})
	}
}

func TestConfig_ValidatesLogLevel(t *testing.T) {
	tests := []struct {
		level  string
		wantOK bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"Error", true},
		{"trace", false},
		{"verbose", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cleanEnv(t)
			t.Setenv("RAPIDAPI_SETUP_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
			t.Setenv("RAPIDAPI_SETUP_LOG_LEVEL", tt.level)

			_, err := loadWithArgs(nil)
			if tt.wantOK && err != nil {
				t.Errorf("should succeed for level %q, got: %v", tt.level, err)
			}
			if !tt.wantOK && err == nil {
				t.Errorf("should fail for level %q", tt.level)
			}
		})
	}
}

func TestConfig_MalformedEnvFile(t *testing.T) {
	cleanEnv(t)
	path := writeEnvFile(t, "NOT VALID LINE WITHOUT EQUALS 'unterminated\n")

	if _, err := loadWithArgs([]string{"--env-file", path}); err == nil {
		t.Error("loadWithArgs() should fail for a malformed env file")
	}
}

func TestConfig_StringOmitsEnvValues(t *testing.T) {
	cleanEnv(t)
	path := writeEnvFile(t, "RAPIDAPI_SETUP_DB_PATH=/secret/dotenv-only.db\nRAPIDAPI_SETUP_LOG_LEVEL=warn\n")

	cfg, err := loadWithArgs([]string{"--env-file", path})
	if err != nil {
		t.Fatalf("loadWithArgs() failed: %v", err)
	}
	if cfg.DBPath != "/secret/dotenv-only.db" {
		t.Fatalf("DBPath = %q, want value from env file", cfg.DBPath)
	}

	str := cfg.String()
	if strings.Contains(str, "/secret/dotenv-only.db") {
		t.Errorf("String() should not contain env file value:\n%s", str)
	}
	if strings.Contains(str, "warn") {
		t.Errorf("String() should not contain env file log level:\n%s", str)
	}
	if !strings.Contains(str, "DBPath: (from .env)") {
		t.Errorf("String() should mark DBPath as coming from the env file:\n%s", str)
	}
	if !strings.Contains(str, "RAPIDAPI_SETUP_DB_PATH") {
		t.Error("String() should list env file keys")
	}
}

func TestConfig_StringShowsValuesNotFromEnvFile(t *testing.T) {
	cleanEnv(t)
	path := writeEnvFile(t, "RAPIDAPI_SETUP_DB_PATH=/secret/dotenv-only.db\n")
	t.Setenv("RAPIDAPI_SETUP_LOG_LEVEL", "error")

	cfg, err := loadWithArgs([]string{"--env-file", path, "--db", "/tmp/flag.db"})
	if err != nil {
		t.Fatalf("loadWithArgs() failed: %v", err)
	}

	str := cfg.String()
	if !strings.Contains(str, "DBPath: /tmp/flag.db") {
		t.Errorf("String() should show the flag value:\n%s", str)
	}
	if !strings.Contains(str, "LogLevel: error") {
		t.Errorf("String() should show the environment value:\n%s", str)
	}
	if strings.Contains(str, "/secret/dotenv-only.db") {
		t.Errorf("String() should not contain env file value:\n%s", str)
	}
}

func TestConfig_StringWithoutEnvFile(t *testing.T) {
	cfg := &Config{
		EnvFile:  ".env",
		DBPath:   "./rapidapi-setup.db",
		LogLevel: "info",
	}

	str := cfg.String()
	if !strings.Contains(str, "DBPath: ./rapidapi-setup.db") {
		t.Errorf("String() should show plain values:\n%s", str)
	}
}

func TestConfig_LogWriter(t *testing.T) {
	cfg := &Config{DebugMode: true}
	writer, err := cfg.LogWriter()
	if err != nil {
		t.Fatalf("LogWriter() failed: %v", err)
	}
	if writer != os.Stdout {
		t.Error("Debug mode should return os.Stdout")
	}

	dir := t.TempDir()
	cfg = &Config{DBPath: filepath.Join(dir, "logs", "test.db")}
	writer, err = cfg.LogWriter()
	if err != nil {
		t.Fatalf("LogWriter() failed: %v", err)
	}
	if writer == os.Stdout {
		t.Error("Non-debug mode should not return os.Stdout")
	}
	if f, ok := writer.(*os.File); ok {
		f.Close()
	}
	if _, err := os.Stat(filepath.Join(dir, "logs", ".rapidapi-setup.log")); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
