package config

import (
	"encoding/json"
	"os"
	"strings"
)

const fallbackModel = "google/gemini-2.5-flash"

// Model represents an available LLM model
type Model struct {
	ID       string `json:"id"`
	Alias    string `json:"alias,omitempty"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// DefaultModels is the built-in catalog: the Gemini family, addressed by their OpenRouter ids.
func DefaultModels() []Model {
	return []Model{
		{ID: "google/gemini-2.5-flash", Alias: "gemini-flash", Name: "Gemini 2.5 Flash", Provider: "Google"},
		{ID: "google/gemini-2.5", Alias: "gemini", Name: "Gemini 2.5", Provider: "Google"},
		{ID: "google/gemini-2.5-pro", Alias: "gemini-pro", Name: "Gemini 2.5 Pro", Provider: "Google"},
		{ID: "google/gemini-2.5-pro", Alias: "vertex-gemini-pro", Name: "Gemini 2.5 Pro (Vertex)", Provider: "Vertex"},
		{ID: "google/gemini-2.5-flash", Alias: "vertex-gemini-flash", Name: "Gemini 2.5 Flash (Vertex)", Provider: "Vertex"},
	}
}

// ModelsConfig holds the available models configuration
type ModelsConfig struct {
	models []Model
}

// NewModelsConfig creates a new models configuration from a file. An empty path
// yields the built-in catalog.
func NewModelsConfig(configPath string) (*ModelsConfig, error) {
	if configPath == "" {
		return &ModelsConfig{models: DefaultModels()}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var models []Model
	err = json.Unmarshal(data, &models)
	if err != nil {
		return nil, err
	}

	return &ModelsConfig{models: models}, nil
}

// GetAvailableModels returns the list of available models
func (mc *ModelsConfig) GetAvailableModels() []Model {
	return mc.models
}

// IsValidModel checks if a model ID or alias is in the list of available models
func (mc *ModelsConfig) IsValidModel(modelID string) bool {
	for _, model := range mc.models {
		if model.ID == modelID || (model.Alias != "" && model.Alias == modelID) {
			return true
		}
	}
	return false
}

// Resolve maps an alias to its model id. Anything else, including ids the catalog
// does not know, is returned trimmed and unchanged; an empty name resolves to the default.
func (mc *ModelsConfig) Resolve(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return mc.GetDefaultModel()
	}
	for _, model := range mc.models {
		if model.Alias != "" && model.Alias == name {
			return model.ID
		}
	}
	return name
}

// GetDefaultModel returns the first model as the default
func (mc *ModelsConfig) GetDefaultModel() string {
	if len(mc.models) > 0 {
		return mc.models[0].ID
	}
	return fallbackModel
}
