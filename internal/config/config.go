// Package config loads the e2e runner configuration: where the ServeRest API
// and frontend live and how the browser behaves. Values come from built-in
// defaults, then an optional YAML, JSON, or TOML file, then the environment.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults for the public ServeRest deployment.
const (
	DefaultAPIURL      = "https://serverest.dev"
	DefaultFrontURL    = "https://front.serverest.dev"
	DefaultImageURL    = "https://picsum.photos/200/300"
	DefaultStepTimeout = 10 * time.Second
)

// Environment variables that override file values.
const (
	EnvAPIURL       = "API_URL"
	EnvFrontURL     = "FRONT_URL"
	EnvImageURL     = "IMAGE_URL"
	EnvHeadless     = "E2E_HEADLESS"
	EnvStepTimeout  = "E2E_STEP_TIMEOUT"
	EnvArtifactsDir = "E2E_ARTIFACTS_DIR"
)

// Config is the effective runner configuration.
type Config struct {
	APIURL       string
	FrontURL     string
	ImageURL     string
	Headless     bool
	StepTimeout  time.Duration
	ArtifactsDir string
	Parallel     int
}

// file is the on-disk shape. Durations are strings like "15s".
type file struct {
	APIURL       string `yaml:"api_url" json:"api_url" toml:"api_url"`
	FrontURL     string `yaml:"front_url" json:"front_url" toml:"front_url"`
	ImageURL     string `yaml:"image_url" json:"image_url" toml:"image_url"`
	Headless     *bool  `yaml:"headless" json:"headless" toml:"headless"`
	StepTimeout  string `yaml:"step_timeout" json:"step_timeout" toml:"step_timeout"`
	ArtifactsDir string `yaml:"artifacts_dir" json:"artifacts_dir" toml:"artifacts_dir"`
	Parallel     int    `yaml:"parallel" json:"parallel" toml:"parallel"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:       DefaultAPIURL,
		FrontURL:     DefaultFrontURL,
		ImageURL:     DefaultImageURL,
		Headless:     true,
		StepTimeout:  DefaultStepTimeout,
		ArtifactsDir: "artifacts",
		Parallel:     1,
	}
}

// Load builds the configuration. path may be empty; a named file that does
// not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	var f file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".toml":
		_, err = toml.Decode(string(data), &f)
	default:
		return fmt.Errorf("config %s: unsupported extension (want .yaml, .json, or .toml)", path)
	}
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	if f.APIURL != "" {
		c.APIURL = f.APIURL
	}
	if f.FrontURL != "" {
		c.FrontURL = f.FrontURL
	}
	if f.ImageURL != "" {
		c.ImageURL = f.ImageURL
	}
	if f.Headless != nil {
		c.Headless = *f.Headless
	}
	if f.StepTimeout != "" {
		d, err := time.ParseDuration(f.StepTimeout)
		if err != nil {
			return fmt.Errorf("config %s: step_timeout: %w", path, err)
		}
		c.StepTimeout = d
	}
	if f.ArtifactsDir != "" {
		c.ArtifactsDir = f.ArtifactsDir
	}
	if f.Parallel != 0 {
		c.Parallel = f.Parallel
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvAPIURL:       &c.APIURL,
		EnvFrontURL:     &c.FrontURL,
		EnvImageURL:     &c.ImageURL,
		EnvArtifactsDir: &c.ArtifactsDir,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup(EnvHeadless); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHeadless, err)
		}
		c.Headless = b
	}
	if v, ok := lookup(EnvStepTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStepTimeout, err)
		}
		c.StepTimeout = d
	}
	return nil
}

// Validate checks that URLs are absolute and limits are positive. Trailing
// slashes are trimmed from the base URLs.
func (c *Config) Validate() error {
	for name, u := range map[string]*string{"api_url": &c.APIURL, "front_url": &c.FrontURL, "image_url": &c.ImageURL} {
		parsed, err := url.Parse(*u)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("config: %s %q must be an absolute URL", name, *u)
		}
		*u = strings.TrimRight(*u, "/")
	}
	if c.StepTimeout <= 0 {
		return fmt.Errorf("config: step_timeout must be positive, got %s", c.StepTimeout)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("config: parallel must be at least 1, got %d", c.Parallel)
	}
	return nil
}
