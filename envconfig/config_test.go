// config_test.go - Tests fuer Environment-Variablen-Konfiguration
package envconfig

import (
	"log/slog"
	"os"
	"testing"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	if value == "" {
		os.Unsetenv(key)
	} else {
		os.Setenv(key, value)
	}
	t.Cleanup(func() {
		if had {
			os.Setenv(key, original)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  slog.Level
	}{
		{"unset", "", slog.LevelInfo},
		{"false", "false", slog.LevelInfo},
		{"true", "true", slog.LevelDebug},
		{"1", "1", slog.LevelDebug},
		{"2", "2", slog.Level(-8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, "FUSER_DEBUG", tt.value)
			if got := LogLevel(); got != tt.want {
				t.Errorf("LogLevel() = %v, erwartet %v", got, tt.want)
			}
		})
	}
}

func TestMaxGraphNodes(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset uses default", "", 4096},
		{"valid override", "128", 128},
		{"zero falls back to default", "0", 4096},
		{"negative falls back to default", "-5", 4096},
		{"non-numeric falls back to default", "abc", 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, "FUSER_MAX_GRAPH_NODES", tt.value)
			if got := MaxGraphNodes(); got != tt.want {
				t.Errorf("MaxGraphNodes() = %d, erwartet %d", got, tt.want)
			}
		})
	}
}

func TestVarTrimsQuotesAndSpace(t *testing.T) {
	withEnv(t, "FUSER_TEST_VAR", `  "hello"  `)
	if got := Var("FUSER_TEST_VAR"); got != "hello" {
		t.Errorf("Var() = %q, erwartet %q", got, "hello")
	}
}

func TestDisableFusionCache(t *testing.T) {
	withEnv(t, "FUSER_DISABLE_FUSION_CACHE", "true")
	if !DisableFusionCache() {
		t.Error("DisableFusionCache() = false, erwartet true")
	}
	withEnv(t, "FUSER_DISABLE_FUSION_CACHE", "")
	if DisableFusionCache() {
		t.Error("DisableFusionCache() = true, erwartet false (Default)")
	}
}

func TestAsMapContainsAllFlags(t *testing.T) {
	m := AsMap()
	for _, key := range []string{
		"FUSER_DEBUG",
		"FUSER_MAX_GRAPH_NODES",
		"FUSER_DISABLE_FUSION_CACHE",
		"FUSER_DUMP_TRANSFORM",
	} {
		if _, ok := m[key]; !ok {
			t.Errorf("AsMap() fehlt Eintrag %q", key)
		}
	}
}
