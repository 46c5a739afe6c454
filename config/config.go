package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Pprof struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"pprof"`
		Prometheus struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	WebSearch  WebSearchConfig  `mapstructure:"websearch"`
	GoogleMaps GoogleMapsConfig `mapstructure:"googlemaps"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	Planner    PlannerConfig    `mapstructure:"planner"`
}

// LLMConfig selects the chat-completion provider and its retry/sampling knobs.
// Provider is "openai" (bearer auth, strict schema mode) or "vllm" (no auth,
// guided decoding).
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	BaseURL     string        `mapstructure:"baseURL"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"apiKey"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"maxRetries"`
	MaxTokens   int           `mapstructure:"maxTokens"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"topP"`
}

type EmbeddingsConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"apiKey"`
}

type WebSearchConfig struct {
	BaseURL string `mapstructure:"baseURL"`
	APIKey  string `mapstructure:"apiKey"`
}

type GoogleMapsConfig struct {
	PlacesBaseURL     string `mapstructure:"placesBaseURL"`
	DirectionsBaseURL string `mapstructure:"directionsBaseURL"`
	APIKey            string `mapstructure:"apiKey"`
}

type DiscoveryConfig struct {
	WebWeight       float64 `mapstructure:"webWeight"`
	EmbeddingWeight float64 `mapstructure:"embeddingWeight"`
	RerankTopN      int     `mapstructure:"rerankTopN"`
	KeywordK        int     `mapstructure:"keywordK"`
	EmbeddingK      int     `mapstructure:"embeddingK"`
	WebSearchK      int     `mapstructure:"webSearchK"`
	FinalPoiCount   int     `mapstructure:"finalPoiCount"`
	BatchSize       int     `mapstructure:"batchSize"`
	EarlyExitCount  int     `mapstructure:"earlyExitCount"`
	EarlyExitScore  float64 `mapstructure:"earlyExitScore"`
}

type PlannerConfig struct {
	MaxIterations     int                `mapstructure:"maxIterations"`
	MaxDailyMinutes   int                `mapstructure:"maxDailyMinutes"`
	OptimalPoiCount   int                `mapstructure:"optimalPoiCount"`
	MaxPoiCount       int                `mapstructure:"maxPoiCount"`
	MinPoiCountPerDay int                `mapstructure:"minPoiCountPerDay"`
	MinPoiCount       int                `mapstructure:"minPoiCount"`
	MaxEnrichAttempts int                `mapstructure:"maxEnrichAttempts"`
	DefaultCost       float64            `mapstructure:"defaultCost"`
	VisitMinutes      map[string]int     `mapstructure:"visitMinutes"`
	CategoryCost      map[string]float64 `mapstructure:"categoryCost"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets come from the environment, never from the yml
	v.AutomaticEnv()
	_ = v.BindEnv("llm.apiKey", "LLM_API_KEY")
	_ = v.BindEnv("embeddings.apiKey", "EMBEDDINGS_API_KEY")
	_ = v.BindEnv("websearch.apiKey", "WEB_SEARCH_API_KEY")
	_ = v.BindEnv("googlemaps.apiKey", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("repositories.postgres.password", "POSTGRES_PASSWORD")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
