package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ResolutionConfig struct {
	IntervalMinutes    int     `toml:"interval_minutes"`
	FuzzyHighThreshold float64 `toml:"fuzzy_high_threshold"`
	FuzzyLowThreshold  float64 `toml:"fuzzy_low_threshold"`
	TaskEventThreshold float64 `toml:"task_event_threshold"`
	ImmediateTimeoutMS int     `toml:"immediate_timeout_ms"`
}

type StrengthConfig struct {
	Default         float64 `toml:"default"`
	Max             float64 `toml:"max"`
	Min             float64 `toml:"min"`
	BaseIncrement   float64 `toml:"base_increment"`
	DecayRate       float64 `toml:"decay_rate"`
	GracePeriodDays int     `toml:"grace_period_days"`
	DecayHourUTC    int     `toml:"decay_hour_utc"`
}

type TemporalConfig struct {
	MinEpisodeDays   int `toml:"min_episode_days"`
	MinEpisodeEvents int `toml:"min_episode_events"`
	MaxEpisodeGap    int `toml:"max_episode_gap_days"`
}

type CorrelationConfig struct {
	Threshold         float64 `toml:"threshold"`
	MinContentLength  int     `toml:"min_content_length"`
	MaxCorrelations   int     `toml:"max_correlations"`
	MeetingPrepCutoff float64 `toml:"meeting_prep_cutoff"`
}

type AssemblerConfig struct {
	DefaultTokenBudget int `toml:"default_token_budget"`
	SourceTimeoutMS    int `toml:"source_timeout_ms"`
	TokenCountTimeoutS int `toml:"token_count_timeout_s"`
}

type TopicsConfig struct {
	NameSimilarity float64 `toml:"name_similarity"`
	KeywordJaccard float64 `toml:"keyword_jaccard"`
}

type Config struct {
	LLM         LLMConfig         `toml:"llm"`
	Memgraph    MemgraphConfig    `toml:"memgraph"`
	Resolution  ResolutionConfig  `toml:"resolution"`
	Strength    StrengthConfig    `toml:"strength"`
	Temporal    TemporalConfig    `toml:"temporal"`
	Correlation CorrelationConfig `toml:"correlation"`
	Assembler   AssemblerConfig   `toml:"assembler"`
	Topics      TopicsConfig      `toml:"topics"`
}

// Default returns the engine's built-in tuning. Load starts from these so
// a partial TOML file only overrides what it names.
func Default() *Config {
	return &Config{
		Resolution: ResolutionConfig{
			IntervalMinutes:    60,
			FuzzyHighThreshold: 0.90,
			FuzzyLowThreshold:  0.80,
			TaskEventThreshold: 0.70,
			ImmediateTimeoutMS: 2000,
		},
		Strength: StrengthConfig{
			Default:         0.5,
			Max:             1.0,
			Min:             0.1,
			BaseIncrement:   0.1,
			DecayRate:       0.05,
			GracePeriodDays: 14,
			DecayHourUTC:    3,
		},
		Temporal: TemporalConfig{
			MinEpisodeDays:   3,
			MinEpisodeEvents: 20,
			MaxEpisodeGap:    2,
		},
		Correlation: CorrelationConfig{
			Threshold:         0.6,
			MinContentLength:  20,
			MaxCorrelations:   5,
			MeetingPrepCutoff: 0.65,
		},
		Assembler: AssemblerConfig{
			DefaultTokenBudget: 4000,
			SourceTimeoutMS:    5000,
			TokenCountTimeoutS: 5,
		},
		Topics: TopicsConfig{
			NameSimilarity: 0.85,
			KeywordJaccard: 0.5,
		},
	}
}

func (c *ResolutionConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *ResolutionConfig) ImmediateTimeout() time.Duration {
	return time.Duration(c.ImmediateTimeoutMS) * time.Millisecond
}

func (c *AssemblerConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutMS) * time.Millisecond
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}
