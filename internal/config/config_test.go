package config

import (
	"strconv"
	"testing"
)

// mapBackend is an in-memory Backend for tests.
type mapBackend map[string]string

func (m mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m[key]
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(v)
	return i, true, err
}

func (m mapBackend) SetString(key, val string) error { m[key] = val; return nil }
func (m mapBackend) SetInt(key string, val int) error {
	m[key] = strconv.Itoa(val)
	return nil
}

func TestDefaults(t *testing.T) {
	t.Setenv("PLATEWISE_LLM_API_KEY", "test-key")

	cfg, err := loadWith(mapBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 4001 {
		t.Errorf("Server.MCPPort = %d, want 4001", cfg.Server.MCPPort)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if got := cfg.Router.CategoryList(); len(got) != 6 {
		t.Errorf("CategoryList = %v, want 6 categories", got)
	}
}

func TestBackendValues(t *testing.T) {
	t.Setenv("PLATEWISE_LLM_API_KEY", "test-key")

	cfg, err := loadWith(mapBackend{
		"server.port":       "8080",
		"llm.model":         "gpt-4o",
		"router.categories": "analyze_meal, conversation,clarification",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	want := []string{"analyze_meal", "conversation", "clarification"}
	got := cfg.Router.CategoryList()
	if len(got) != len(want) {
		t.Fatalf("CategoryList = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CategoryList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	t.Setenv("PLATEWISE_LLM_API_KEY", "test-key")
	t.Setenv("PLATEWISE_SERVER_PORT", "9999")

	cfg, err := loadWith(mapBackend{"server.port": "8080"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want env override 9999", cfg.Server.Port)
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("PLATEWISE_LLM_API_KEY", "")

	if _, err := loadWith(mapBackend{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestSecretNeverReadFromBackend(t *testing.T) {
	t.Setenv("PLATEWISE_LLM_API_KEY", "")

	// A key in the file backend must not satisfy the secret requirement.
	if _, err := loadWith(mapBackend{"llm.api_key": "leaked"}); err == nil {
		t.Fatal("expected error: secrets come from the environment only")
	}
}
