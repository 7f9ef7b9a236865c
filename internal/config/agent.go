package config

import (
	"errors"
	"fmt"
	"os"

	"ai-chat/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// AgentSettings are the generation parameters of the orchestrator agent. Values come
// from an optional YAML file, then AGENT_* environment variables; unset fields take the
// env-default. Zero values in the file are treated as unset.
type AgentSettings struct {
	Model            string   `yaml:"model" env:"AGENT_MODEL" env-default:"google/gemini-2.5-flash" validate:"required"`
	MaxRetries       int      `yaml:"max_retries" env:"AGENT_MAX_RETRIES" env-default:"3" validate:"gte=0,lte=10"`
	Seed             int      `yaml:"seed" env:"AGENT_SEED" env-default:"42"`
	Temperature      float64  `yaml:"temperature" env:"AGENT_TEMPERATURE" env-default:"0.7" validate:"gte=0,lte=2"`
	TopP             float64  `yaml:"top_p" env:"AGENT_TOP_P" env-default:"1" validate:"gte=0,lte=1"`
	TopK             int      `yaml:"top_k" env:"AGENT_TOP_K" env-default:"40" validate:"gte=0"`
	StopSequences    []string `yaml:"stop_sequences" env:"AGENT_STOP_SEQUENCES" env-separator:","`
	FrequencyPenalty float64  `yaml:"frequency_penalty" env:"AGENT_FREQUENCY_PENALTY" env-default:"0" validate:"gte=-2,lte=2"`
	PresencePenalty  float64  `yaml:"presence_penalty" env:"AGENT_PRESENCE_PENALTY" env-default:"0" validate:"gte=-2,lte=2"`
	MaxSteps         int      `yaml:"max_steps" env:"AGENT_MAX_STEPS" env-default:"10" validate:"gte=1"`
	Verbose          bool     `yaml:"verbose" env:"AGENT_VERBOSE" env-default:"true"`
	System           string   `yaml:"system" env:"AGENT_SYSTEM" env-default:"You are a helpful assistant that can answer questions and help with tasks." validate:"required"`
	MaxOutputTokens  int      `yaml:"max_output_tokens" env:"AGENT_MAX_OUTPUT_TOKENS" env-default:"1000" validate:"gte=1"`
}

// LoadAgentSettings reads the agent settings. A missing file is not an error: the
// environment and defaults are used instead.
func LoadAgentSettings(path string) (*AgentSettings, error) {
	var settings AgentSettings

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &settings); err != nil {
				return nil, fmt.Errorf("failed to read agent settings from %s: %w", path, err)
			}
			return checkAgentSettings(&settings)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat agent settings file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&settings); err != nil {
		return nil, fmt.Errorf("failed to read agent settings from environment: %w", err)
	}
	return checkAgentSettings(&settings)
}

func checkAgentSettings(s *AgentSettings) (*AgentSettings, error) {
	if err := validator.New().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, &apperr.ConfigurationError{
				Key:    "agent." + fe.Field(),
				Reason: fmt.Sprintf("failed %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value()),
			}
		}
		return nil, &apperr.ConfigurationError{Key: "agent", Reason: err.Error()}
	}
	return s, nil
}
