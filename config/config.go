package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"demopipe/model"
)

// Configuration is the application config, read from a yaml file and
// DEMOPIPE_* environment variables.
type Configuration struct {
	SourceRoot    string `json:"source_root" mapstructure:"source_root"`
	ProcessedRoot string `json:"processed_root" mapstructure:"processed_root"`
	StrategyFile  string `json:"strategy_file" mapstructure:"strategy_file"`
	LogLevel      string `json:"log_level" mapstructure:"log_level"`
}

// Load reads the configuration. An empty file argument looks for
// demopipe.yaml in the working directory and tolerates its absence.
func Load(file string) (*Configuration, error) {
	v := viper.New()
	v.SetDefault("source_root", "demos")
	v.SetDefault("processed_root", "processed")
	v.SetDefault("log_level", "info")
	v.SetEnvPrefix("DEMOPIPE")
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("demopipe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Configuration{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadStrategy reads an indexing strategy from a yaml document. Omitted
// keys keep their defaults, in particular numeric statistics stay enabled.
func LoadStrategy(path string) (*model.IndexingStrategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy: %w", err)
	}
	strategy := model.DefaultStrategy()
	if err := yaml.Unmarshal(data, strategy); err != nil {
		return nil, fmt.Errorf("parse strategy: %w", err)
	}
	return strategy, nil
}
