package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/firebolt/internal/errors"
)

const (
	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"

	// DefaultMain is the default main package built by 'firebolt build'.
	DefaultMain = "."

	// DefaultBinary is the name of the compiled server binary.
	DefaultBinary = "server"

	// DefaultMetadataMaxAge is how long fetched page metadata stays fresh.
	DefaultMetadataMaxAge = "30s"
)

// FileNames lists the recognised configuration files in lookup order.
var FileNames = []string{"firebolt.json", "firebolt.toml", "firebolt.yaml", "firebolt.yml"}

// Config represents the complete project configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" toml:"name" yaml:"name,omitempty"`

	// Routes is the directory holding route modules.
	Routes string `json:"routes,omitempty" toml:"routes" yaml:"routes,omitempty"`

	// Public is the directory of static files served as is.
	Public string `json:"public,omitempty" toml:"public" yaml:"public,omitempty"`

	// Dev contains development server configuration.
	Dev DevConfig `json:"dev,omitempty" toml:"dev" yaml:"dev,omitempty"`

	// Build contains production build configuration.
	Build BuildConfig `json:"build,omitempty" toml:"build" yaml:"build,omitempty"`

	// Start contains configuration for serving a built binary.
	Start StartConfig `json:"start,omitempty" toml:"start" yaml:"start,omitempty"`

	// Metadata contains page metadata caching configuration.
	Metadata MetadataConfig `json:"metadata,omitempty" toml:"metadata" yaml:"metadata,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty" toml:"port" yaml:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty" toml:"host" yaml:"host,omitempty"`

	// Watch contains paths to watch for changes.
	Watch []string `json:"watch,omitempty" toml:"watch" yaml:"watch,omitempty"`

	// Ignore contains patterns to ignore during watch.
	Ignore []string `json:"ignore,omitempty" toml:"ignore" yaml:"ignore,omitempty"`

	// Debounce is the polling interval of the watcher (e.g., "100ms").
	Debounce string `json:"debounce,omitempty" toml:"debounce" yaml:"debounce,omitempty"`
}

// BuildConfig contains production build settings.
type BuildConfig struct {
	// Output is the output directory for builds.
	Output string `json:"output,omitempty" toml:"output" yaml:"output,omitempty"`

	// Main is the main package to compile.
	Main string `json:"main,omitempty" toml:"main" yaml:"main,omitempty"`

	// LDFlags are additional linker flags for go build.
	LDFlags string `json:"ldflags,omitempty" toml:"ldflags" yaml:"ldflags,omitempty"`

	// Tags are build tags to pass to go build.
	Tags []string `json:"tags,omitempty" toml:"tags" yaml:"tags,omitempty"`

	// Publish configures upload of the build output to S3.
	Publish PublishConfig `json:"publish,omitempty" toml:"publish" yaml:"publish,omitempty"`
}

// PublishConfig configures uploading build output to an S3 bucket.
type PublishConfig struct {
	Bucket   string `json:"bucket,omitempty" toml:"bucket" yaml:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty" toml:"prefix" yaml:"prefix,omitempty"`
	Region   string `json:"region,omitempty" toml:"region" yaml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" toml:"endpoint" yaml:"endpoint,omitempty"`
}

// StartConfig contains settings for 'firebolt start'.
type StartConfig struct {
	// Binary is the server binary to run. Defaults to <output>/server.
	Binary string `json:"binary,omitempty" toml:"binary" yaml:"binary,omitempty"`

	// Port is the port passed to the server through $PORT.
	Port int `json:"port,omitempty" toml:"port" yaml:"port,omitempty"`
}

// MetadataConfig contains page metadata cache settings.
type MetadataConfig struct {
	// MaxAge is how long fetched metadata stays fresh (e.g., "30s").
	MaxAge string `json:"maxAge,omitempty" toml:"maxAge" yaml:"maxAge,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E021").
		WithDetail("No firebolt config found in " + dir).
		WithSuggestion("Create firebolt.json at the project root")
}

// LoadFile reads configuration from the specified file path.
// The format is chosen by the file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E021").
				WithDetail("No config found at " + path)
		}
		return nil, errors.New("E020").Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, errors.New("E023").WithField("path", path)
	}
	if err != nil {
		return nil, errors.New("E020").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the file syntax")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// SaveTo writes the configuration as JSON to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E020").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E020").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Routes == "" {
		c.Routes = "app/routes"
	}
	if c.Public == "" {
		c.Public = "public"
	}

	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.Watch == nil {
		c.Dev.Watch = []string{"app", "public"}
	}
	if c.Dev.Debounce == "" {
		c.Dev.Debounce = "100ms"
	}

	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Build.Main == "" {
		c.Build.Main = DefaultMain
	}

	if c.Start.Port == 0 {
		c.Start.Port = c.Dev.Port
	}

	if c.Metadata.MaxAge == "" {
		c.Metadata.MaxAge = DefaultMetadataMaxAge
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for _, port := range []int{c.Dev.Port, c.Start.Port} {
		if port < 0 || port > 65535 {
			return errors.New("E022").WithField("port", strconv.Itoa(port))
		}
	}
	if _, err := time.ParseDuration(c.Metadata.MaxAge); err != nil {
		return errors.New("E020").
			WithDetail("metadata.maxAge is not a duration: " + c.Metadata.MaxAge).
			Wrap(err)
	}
	if _, err := time.ParseDuration(c.Dev.Debounce); err != nil {
		return errors.New("E020").
			WithDetail("dev.debounce is not a duration: " + c.Dev.Debounce).
			Wrap(err)
	}
	return nil
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// MetadataMaxAge returns the parsed metadata freshness window.
func (c *Config) MetadataMaxAge() time.Duration {
	d, err := time.ParseDuration(c.Metadata.MaxAge)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// DebounceInterval returns the parsed watcher interval.
func (c *Config) DebounceInterval() time.Duration {
	d, err := time.ParseDuration(c.Dev.Debounce)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// OutputPath returns the absolute path to the build output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Build.Output)
}

// BinaryPath returns the path of the server binary used by 'firebolt start'.
func (c *Config) BinaryPath() string {
	if c.Start.Binary != "" {
		return c.resolve(c.Start.Binary)
	}
	return filepath.Join(c.OutputPath(), DefaultBinary)
}

// RoutesPath returns the absolute path to the routes directory.
func (c *Config) RoutesPath() string {
	return c.resolve(c.Routes)
}

// PublicPath returns the absolute path to the public directory.
func (c *Config) PublicPath() string {
	return c.resolve(c.Public)
}

// WatchPaths returns the absolute paths watched in dev mode.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Dev.Watch))
	for _, p := range c.Dev.Watch {
		paths = append(paths, c.resolve(p))
	}
	return paths
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E021").
				WithDetail("No firebolt config found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}
