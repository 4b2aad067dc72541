package generation

import "time"

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		Temperature: 0.8, // creative-writing task, favor variety over determinism
		MaxTokens:   1600,
		Timeout:     60 * time.Second,
	}
}
