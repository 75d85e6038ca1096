// Package config loads digitpad settings from a YAML file and the
// environment.
package config

import (
	"os"
	"path"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/normalize"
)

const (
	EnvConfig         = "DIGITPAD_CONFIG"
	EnvClassifierURL  = "DIGITPAD_CLASSIFIER_URL"
	EnvApplicationKey = "DIGITPAD_APPLICATIONKEY"
	EnvHmac           = "DIGITPAD_HMAC"
	EnvJWTSecret      = "DIGITPAD_JWT_SECRET"
	EnvPort           = "DIGITPAD_PORT"

	configFile = "config.yaml"
)

const (
	ClassifierNone   = "none"
	ClassifierDense  = "dense"
	ClassifierRemote = "remote"
)

type Config struct {
	Canvas     Canvas     `yaml:"canvas"`
	Normalize  Normalize  `yaml:"normalize"`
	Classifier Classifier `yaml:"classifier"`
	Server     Server     `yaml:"server"`
	Batch      Batch      `yaml:"batch"`
}

type Canvas struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	BrushWidth float64 `yaml:"brush_width"`
}

type Normalize struct {
	GridSize     int     `yaml:"grid_size"`
	Margin       float64 `yaml:"margin"`
	Supersample  int     `yaml:"supersample"`
	InkThreshold uint8   `yaml:"ink_threshold"`
}

type Classifier struct {
	Kind           string        `yaml:"kind"`
	Weights        string        `yaml:"weights"`
	URL            string        `yaml:"url"`
	ApplicationKey string        `yaml:"application_key"`
	HmacKey        string        `yaml:"hmac_key"`
	Timeout        time.Duration `yaml:"timeout"`
}

type Server struct {
	Port      string `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type Batch struct {
	Parallelism int64 `yaml:"parallelism"`
}

// Default mirrors the browser app: a 280×280 canvas with a brush two grid
// cells wide.
func Default() Config {
	return Config{
		Canvas: Canvas{
			Width:      280,
			Height:     280,
			BrushWidth: 20,
		},
		Normalize: Normalize{
			GridSize:     normalize.GridSize,
			Margin:       normalize.DefaultMargin,
			Supersample:  normalize.DefaultSupersample,
			InkThreshold: normalize.DefaultInkThreshold,
		},
		Classifier: Classifier{
			Kind:    ClassifierNone,
			Timeout: 5 * time.Second,
		},
		Server: Server{
			Port: "8080",
		},
		Batch: Batch{
			Parallelism: 4,
		},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// The result is not validated: callers apply their own overrides first and
// then call Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "can't read config")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "can't parse %s", path)
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadDefault loads DIGITPAD_CONFIG or the file in the default location.
// A missing default file is not an error.
func LoadDefault() (Config, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return Load(p)
	}

	p, err := DefaultPath()
	if err == nil {
		if _, statErr := os.Stat(p); statErr == nil {
			return Load(p)
		}
		log.Trace.Printf("config: %s not found, using defaults", p)
	} else {
		log.Trace.Printf("config: no default path: %v", err)
	}

	cfg := Default()
	cfg.applyEnv()
	return cfg, nil
}

// UseWeights switches the classifier to the dense network in path.
func (c *Config) UseWeights(path string) {
	c.Classifier.Kind = ClassifierDense
	c.Classifier.Weights = path
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvClassifierURL); v != "" {
		c.Classifier.URL = v
		if c.Classifier.Kind == "" || c.Classifier.Kind == ClassifierNone {
			c.Classifier.Kind = ClassifierRemote
		}
	}
	if v := os.Getenv(EnvApplicationKey); v != "" {
		c.Classifier.ApplicationKey = v
	}
	if v := os.Getenv(EnvHmac); v != "" {
		c.Classifier.HmacKey = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		c.Server.Port = v
	}
}

func (c Config) Validate() error {
	if c.Canvas.Width < 1 || c.Canvas.Height < 1 {
		return errors.Errorf("canvas must be at least 1x1, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.BrushWidth <= 0 {
		return errors.Errorf("brush_width must be positive, got %v", c.Canvas.BrushWidth)
	}
	if c.Normalize.GridSize < 1 {
		return errors.Errorf("grid_size must be positive, got %d", c.Normalize.GridSize)
	}
	if c.Normalize.Margin < 0 || c.Normalize.Margin >= 0.5 {
		return errors.Errorf("margin must be in [0, 0.5), got %v", c.Normalize.Margin)
	}
	if c.Normalize.Supersample < 1 {
		return errors.Errorf("supersample must be positive, got %d", c.Normalize.Supersample)
	}
	if c.Normalize.InkThreshold == 0 {
		return errors.New("ink_threshold 0 would never detect ink")
	}

	switch c.Classifier.Kind {
	case "", ClassifierNone:
	case ClassifierDense:
		if c.Classifier.Weights == "" {
			return errors.New("dense classifier needs weights")
		}
	case ClassifierRemote:
		if c.Classifier.URL == "" {
			return errors.New("remote classifier needs url")
		}
	default:
		return errors.Errorf("unknown classifier kind %q", c.Classifier.Kind)
	}

	if c.Batch.Parallelism < 1 {
		return errors.Errorf("batch parallelism must be positive, got %d", c.Batch.Parallelism)
	}
	return nil
}

func (c Config) NormalizeOptions() normalize.Options {
	return normalize.Options{
		GridSize:     c.Normalize.GridSize,
		Margin:       c.Normalize.Margin,
		Supersample:  c.Normalize.Supersample,
		InkThreshold: c.Normalize.InkThreshold,
	}
}

// DefaultPath is config.yaml under the user config dir, falling back to
// ~/.digitpad when there is none.
func DefaultPath() (string, error) {
	configdir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return path.Join(home, ".digitpad", configFile), nil
	}
	return path.Join(configdir, "digitpad", configFile), nil
}
