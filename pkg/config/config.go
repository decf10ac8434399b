package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Log       LogConfig
	Generator GeneratorConfig
	Genetic   GeneticConfig
	Hybrid    HybridConfig
	Export    ExportConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// GeneratorConfig governs the generation run orchestration.
type GeneratorConfig struct {
	Workers         int
	QueueSize       int
	RunTimeout      time.Duration
	FitnessCeiling  float64
	EvalConcurrency int
}

// GeneticConfig holds default genetic engine parameters.
type GeneticConfig struct {
	PopulationSize int
	MaxGenerations int
	CrossoverRate  float64
	MutationRate   float64
	TargetFitness  float64
	Elitism        int
	StallLimit     int
}

// HybridConfig holds default hybrid engine parameters.
type HybridConfig struct {
	MaxIterations           int
	InitialTemperature      float64
	CoolingRate             float64
	IterationsPerTemp       int
	TabuListSize            int
	DomainFilteringStrength float64
	NeighborhoodSample      int
	ProgressEvery           int
	AcceptanceScale         float64
}

// ExportConfig controls timetable export output.
type ExportConfig struct {
	Enabled    bool
	StorageDir string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Generator = GeneratorConfig{
		Workers:         v.GetInt("GENERATOR_WORKERS"),
		QueueSize:       v.GetInt("GENERATOR_QUEUE_SIZE"),
		RunTimeout:      parseDuration(v.GetString("GENERATOR_RUN_TIMEOUT"), 10*time.Minute),
		FitnessCeiling:  v.GetFloat64("GENERATOR_FITNESS_CEILING"),
		EvalConcurrency: v.GetInt("GENERATOR_EVAL_CONCURRENCY"),
	}

	cfg.Genetic = GeneticConfig{
		PopulationSize: v.GetInt("GA_POPULATION_SIZE"),
		MaxGenerations: v.GetInt("GA_MAX_GENERATIONS"),
		CrossoverRate:  v.GetFloat64("GA_CROSSOVER_RATE"),
		MutationRate:   v.GetFloat64("GA_MUTATION_RATE"),
		TargetFitness:  v.GetFloat64("GA_TARGET_FITNESS"),
		Elitism:        v.GetInt("GA_ELITISM"),
		StallLimit:     v.GetInt("GA_STALL_LIMIT"),
	}

	cfg.Hybrid = HybridConfig{
		MaxIterations:           v.GetInt("HYBRID_MAX_ITERATIONS"),
		InitialTemperature:      v.GetFloat64("HYBRID_INITIAL_TEMPERATURE"),
		CoolingRate:             v.GetFloat64("HYBRID_COOLING_RATE"),
		IterationsPerTemp:       v.GetInt("HYBRID_ITERATIONS_PER_TEMP"),
		TabuListSize:            v.GetInt("HYBRID_TABU_LIST_SIZE"),
		DomainFilteringStrength: v.GetFloat64("HYBRID_DOMAIN_FILTERING_STRENGTH"),
		NeighborhoodSample:      v.GetInt("HYBRID_NEIGHBORHOOD_SAMPLE"),
		ProgressEvery:           v.GetInt("HYBRID_PROGRESS_EVERY"),
		AcceptanceScale:         v.GetFloat64("HYBRID_ACCEPTANCE_SCALE"),
	}

	cfg.Export = ExportConfig{
		Enabled:    v.GetBool("ENABLE_EXPORT"),
		StorageDir: v.GetString("EXPORT_STORAGE_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GENERATOR_WORKERS", 2)
	v.SetDefault("GENERATOR_QUEUE_SIZE", 8)
	v.SetDefault("GENERATOR_RUN_TIMEOUT", "10m")
	v.SetDefault("GENERATOR_FITNESS_CEILING", 0.7)
	v.SetDefault("GENERATOR_EVAL_CONCURRENCY", 4)

	v.SetDefault("GA_POPULATION_SIZE", 100)
	v.SetDefault("GA_MAX_GENERATIONS", 1000)
	v.SetDefault("GA_CROSSOVER_RATE", 0.8)
	v.SetDefault("GA_MUTATION_RATE", 0.1)
	v.SetDefault("GA_TARGET_FITNESS", 0.95)
	v.SetDefault("GA_ELITISM", 2)
	v.SetDefault("GA_STALL_LIMIT", 100)

	v.SetDefault("HYBRID_MAX_ITERATIONS", 10000)
	v.SetDefault("HYBRID_INITIAL_TEMPERATURE", 1000.0)
	v.SetDefault("HYBRID_COOLING_RATE", 0.95)
	v.SetDefault("HYBRID_ITERATIONS_PER_TEMP", 100)
	v.SetDefault("HYBRID_TABU_LIST_SIZE", 50)
	v.SetDefault("HYBRID_DOMAIN_FILTERING_STRENGTH", 0.8)
	v.SetDefault("HYBRID_NEIGHBORHOOD_SAMPLE", 40)
	v.SetDefault("HYBRID_PROGRESS_EVERY", 50)
	v.SetDefault("HYBRID_ACCEPTANCE_SCALE", 1000.0)

	v.SetDefault("ENABLE_EXPORT", false)
	v.SetDefault("EXPORT_STORAGE_DIR", "./exports")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
