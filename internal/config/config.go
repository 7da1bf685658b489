// Package config defines the serializable run configuration shared by the
// CLI, the HTTP server and checkpoints.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/bayesopt/internal/solver"
	"github.com/cwbudde/bayesopt/internal/task"
)

// RunConfig describes one optimization run.
type RunConfig struct {
	Task TaskConfig `yaml:"task" json:"task"`

	InitPoints    int    `yaml:"init_points" json:"initPoints" validate:"min=0"`
	Iterations    int    `yaml:"iterations" json:"iterations" validate:"min=0"`
	TrainInterval int    `yaml:"train_interval" json:"trainInterval" validate:"min=1"`
	NumSave       int    `yaml:"num_save" json:"numSave" validate:"min=1"`
	NRestarts     int    `yaml:"n_restarts" json:"nRestarts" validate:"min=0"`
	Initializer   string `yaml:"initializer" json:"initializer" validate:"omitempty,oneof=uniform lhs"`
	Seed          int64  `yaml:"seed" json:"seed"`

	Acquisition    AcquisitionConfig    `yaml:"acquisition" json:"acquisition"`
	Maximizer      MaximizerConfig      `yaml:"maximizer" json:"maximizer"`
	Recommendation RecommendationConfig `yaml:"recommendation" json:"recommendation"`
	Model          ModelConfig          `yaml:"model" json:"model"`

	Store       StoreConfig `yaml:"store" json:"store"`
	Checkpoints bool        `yaml:"checkpoints" json:"checkpoints"`
}

type TaskConfig struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Dims int    `yaml:"dims" json:"dims" validate:"min=0"`
}

type AcquisitionConfig struct {
	Name  string  `yaml:"name" json:"name" validate:"oneof=ei pi lcb"`
	Xi    float64 `yaml:"xi" json:"xi" validate:"min=0"`
	Kappa float64 `yaml:"kappa" json:"kappa" validate:"min=0"`
}

type MaximizerConfig struct {
	Name       string `yaml:"name" json:"name" validate:"oneof=mayfly random"`
	Iterations int    `yaml:"iterations" json:"iterations" validate:"min=1"`
	Population int    `yaml:"population" json:"population" validate:"min=1"`
	Candidates int    `yaml:"candidates" json:"candidates" validate:"min=1"`
}

type RecommendationConfig struct {
	Policy      string  `yaml:"policy" json:"policy" validate:"policy"`
	Recommender string  `yaml:"recommender" json:"recommender" validate:"oneof=posterior-mean-and-std posterior-mean"`
	Kappa       float64 `yaml:"kappa" json:"kappa" validate:"min=0"`
}

type ModelConfig struct {
	Kernel                  string  `yaml:"kernel" json:"kernel" validate:"oneof=rbf matern52"`
	LengthScale             float64 `yaml:"length_scale" json:"lengthScale" validate:"gt=0"`
	SignalVariance          float64 `yaml:"signal_variance" json:"signalVariance" validate:"gt=0"`
	Noise                   float64 `yaml:"noise" json:"noise" validate:"gt=0"`
	OptimizeHyperparameters bool    `yaml:"optimize_hyperparameters" json:"optimizeHyperparameters"`
}

type StoreConfig struct {
	Kind       string `yaml:"kind" json:"kind" validate:"oneof=fs sqlite"`
	Dir        string `yaml:"dir" json:"dir" validate:"required"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlitePath,omitempty"`
}

// Default returns the configuration used when neither a file nor flags
// override a value.
func Default() RunConfig {
	return RunConfig{
		Task:          TaskConfig{Name: "branin"},
		InitPoints:    3,
		Iterations:    10,
		TrainInterval: 1,
		NumSave:       1,
		NRestarts:     10,
		Initializer:   "uniform",
		Acquisition: AcquisitionConfig{
			Name:  "ei",
			Xi:    0.01,
			Kappa: 2,
		},
		Maximizer: MaximizerConfig{
			Name:       "mayfly",
			Iterations: 50,
			Population: 20,
			Candidates: 1000,
		},
		Recommendation: RecommendationConfig{
			Policy:      solver.PolicyBestObserved.String(),
			Recommender: "posterior-mean-and-std",
			Kappa:       1,
		},
		Model: ModelConfig{
			Kernel:                  "matern52",
			LengthScale:             1,
			SignalVariance:          1,
			Noise:                   1e-6,
			OptimizeHyperparameters: true,
		},
		Store: StoreConfig{
			Kind: "fs",
			Dir:  "./data",
		},
		Checkpoints: true,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (RunConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SQLiteFile returns the configured database path, defaulting to a file in
// the store directory.
func (c RunConfig) SQLiteFile() string {
	if c.Store.SQLitePath != "" {
		return c.Store.SQLitePath
	}
	return filepath.Join(c.Store.Dir, "bayesopt.db")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("policy", validPolicy)
	})
	return validate
}

func validPolicy(fl validator.FieldLevel) bool {
	_, err := solver.ParsePolicy(fl.Field().String())
	return err == nil
}

// ValidateFields checks field ranges and names without resolving the task.
func (c RunConfig) ValidateFields() error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks field ranges and that the task exists with the requested
// dimensionality.
func (c RunConfig) Validate() error {
	if err := c.ValidateFields(); err != nil {
		return err
	}
	if _, err := task.New(c.Task.Name, c.Task.Dims); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
