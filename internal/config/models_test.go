package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewModelsConfig_ValidConfig(t *testing.T) {
	// Create a temporary test config file
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "models.json")

	validJSON := `[
		{
			"id": "google/gemini-2.5-flash",
			"alias": "gemini-flash",
			"name": "Gemini 2.5 Flash",
			"provider": "Google"
		},
		{
			"id": "openai/gpt-4o-mini",
			"name": "GPT-4o mini",
			"provider": "OpenAI"
		}
	]`

	err := os.WriteFile(configPath, []byte(validJSON), 0644)
	if err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config, err := NewModelsConfig(configPath)
	if err != nil {
		t.Errorf("NewModelsConfig() error = %v, want nil", err)
		return
	}

	if config == nil {
		t.Error("NewModelsConfig() returned nil config")
		return
	}

	models := config.GetAvailableModels()
	if len(models) != 2 {
		t.Errorf("GetAvailableModels() returned %d models, want 2", len(models))
	}
}

func TestNewModelsConfig_BuiltIn(t *testing.T) {
	config, err := NewModelsConfig("")
	if err != nil {
		t.Fatalf("NewModelsConfig(\"\") error = %v", err)
	}

	if got := config.GetDefaultModel(); got != "google/gemini-2.5-flash" {
		t.Errorf("GetDefaultModel() = %s, want google/gemini-2.5-flash", got)
	}

	if len(config.GetAvailableModels()) != len(DefaultModels()) {
		t.Errorf("GetAvailableModels() returned %d models, want %d", len(config.GetAvailableModels()), len(DefaultModels()))
	}
}

func TestNewModelsConfig_FileNotFound(t *testing.T) {
	config, err := NewModelsConfig("/nonexistent/path/models.json")
	if err == nil {
		t.Error("NewModelsConfig() error = nil, want error for nonexistent file")
	}

	if config != nil {
		t.Error("NewModelsConfig() returned non-nil config for nonexistent file")
	}
}

func TestNewModelsConfig_InvalidJSON(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.json")

	invalidJSON := `{ this is not valid json }`

	err := os.WriteFile(configPath, []byte(invalidJSON), 0644)
	if err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config, err := NewModelsConfig(configPath)
	if err == nil {
		t.Error("NewModelsConfig() error = nil, want error for invalid JSON")
	}

	if config != nil {
		t.Error("NewModelsConfig() returned non-nil config for invalid JSON")
	}
}

func TestModelsConfig_IsValidModel(t *testing.T) {
	config := &ModelsConfig{models: DefaultModels()}

	tests := []struct {
		name    string
		modelID string
		want    bool
	}{
		{
			name:    "valid model id",
			modelID: "google/gemini-2.5-pro",
			want:    true,
		},
		{
			name:    "valid alias",
			modelID: "gemini-flash",
			want:    true,
		},
		{
			name:    "invalid model - not in list",
			modelID: "invalid/model",
			want:    false,
		},
		{
			name:    "invalid model - empty string",
			modelID: "",
			want:    false,
		},
		{
			name:    "invalid model - partial match",
			modelID: "google",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := config.IsValidModel(tt.modelID)
			if got != tt.want {
				t.Errorf("IsValidModel(%s) = %v, want %v", tt.modelID, got, tt.want)
			}
		})
	}
}

func TestModelsConfig_Resolve(t *testing.T) {
	config := &ModelsConfig{models: DefaultModels()}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "gemini alias", input: "gemini", want: "google/gemini-2.5"},
		{name: "flash alias", input: "gemini-flash", want: "google/gemini-2.5-flash"},
		{name: "pro alias", input: "gemini-pro", want: "google/gemini-2.5-pro"},
		{name: "vertex alias", input: "vertex-gemini-pro", want: "google/gemini-2.5-pro"},
		{name: "full id passes through", input: "openai/gpt-4o-mini", want: "openai/gpt-4o-mini"},
		{name: "whitespace trimmed", input: "  gemini-pro ", want: "google/gemini-2.5-pro"},
		{name: "empty resolves to default", input: "", want: "google/gemini-2.5-flash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := config.Resolve(tt.input); got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestModelsConfig_GetDefaultModel(t *testing.T) {
	tests := []struct {
		name   string
		config *ModelsConfig
		want   string
	}{
		{
			name: "default model from populated list",
			config: &ModelsConfig{
				models: []Model{
					{ID: "first-model", Name: "First Model", Provider: "Provider"},
					{ID: "second-model", Name: "Second Model", Provider: "Provider"},
				},
			},
			want: "first-model",
		},
		{
			name:   "fallback model for empty list",
			config: &ModelsConfig{models: []Model{}},
			want:   "google/gemini-2.5-flash",
		},
		{
			name:   "fallback model for nil list",
			config: &ModelsConfig{models: nil},
			want:   "google/gemini-2.5-flash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.config.GetDefaultModel()
			if got != tt.want {
				t.Errorf("GetDefaultModel() = %s, want %s", got, tt.want)
			}
		})
	}
}
