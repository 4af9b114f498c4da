package capabilities

import "testing"

func TestRegistryLoadsEmbeddedModels(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	models, err := r.ListProviderModels("anthropic")
	if err != nil {
		t.Fatalf("ListProviderModels: %v", err)
	}
	if len(models) == 0 {
		t.Fatal("no anthropic models loaded")
	}

	caps, err := r.GetModelCapabilities("anthropic", "claude-3-5-sonnet-latest")
	if err != nil {
		t.Fatalf("GetModelCapabilities: %v", err)
	}
	if caps.MaxTokens == 0 {
		t.Error("max_tokens missing from capability entry")
	}

	if _, err := r.GetModelCapabilities("anthropic", "no-such-model"); err == nil {
		t.Error("expected error for unknown model")
	}
	if _, err := r.GetModelCapabilities("openai", "gpt-4"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestSupportsLanguage(t *testing.T) {
	m := &ModelCapabilities{LocalizedLanguages: []string{"en", "es"}}

	tests := []struct {
		code string
		want bool
	}{
		{"en", true},
		{"es", true},
		{"ht", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := m.SupportsLanguage(tt.code); got != tt.want {
			t.Errorf("SupportsLanguage(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
