package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/v0xg/teamscrape/internal/locator"
)

// EnvPrefix namespaces every environment variable the tool reads
const EnvPrefix = "TEAMS"

// ErrMissingCredentials means TEAMS_EMAIL or TEAMS_PASSWORD is unset
var ErrMissingCredentials = errors.New("TEAMS_EMAIL and TEAMS_PASSWORD must be set")

// Credentials identify the account used to sign in
type Credentials struct {
	Email    string
	Password string
}

// String never includes either value so credentials cannot leak through
// formatting or logging.
func (c Credentials) String() string {
	return "Credentials{<redacted>}"
}

func (c Credentials) GoString() string { return c.String() }

// Complete reports whether both values are set
func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != ""
}

// Config holds everything loaded at process start
type Config struct {
	Email           string                     `mapstructure:"email"`
	Password        string                     `mapstructure:"password"`
	URL             string                     `mapstructure:"url"`
	DebuggerAddress string                     `mapstructure:"debugger_address"`
	Browser         BrowserConfig              `mapstructure:"browser"`
	Login           LoginConfig                `mapstructure:"login"`
	Scrape          ScrapeConfig               `mapstructure:"scrape"`
	Log             LogConfig                  `mapstructure:"log"`
	Locators        map[string]locator.Locator `mapstructure:"locators"`
}

// BrowserConfig controls launching a fresh browser
type BrowserConfig struct {
	Bin         string `mapstructure:"bin"`
	Headless    bool   `mapstructure:"headless"`
	UserDataDir string `mapstructure:"user_data_dir"`
}

// LoginConfig controls the login flow
type LoginConfig struct {
	StepTimeout          time.Duration `mapstructure:"step_timeout"`
	ImplicitWait         time.Duration `mapstructure:"implicit_wait"`
	StaySignedInOptional bool          `mapstructure:"stay_signed_in_optional"`
	StaySignedInProbe    time.Duration `mapstructure:"stay_signed_in_probe"`
	FailureScreenshot    bool          `mapstructure:"failure_screenshot"`
}

// ScrapeConfig controls transcript extraction
type ScrapeConfig struct {
	ContainerTimeout time.Duration `mapstructure:"container_timeout"`
	OutputDir        string        `mapstructure:"output_dir"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
	File   string `mapstructure:"file"`
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("email", "")
	v.SetDefault("password", "")
	v.SetDefault("url", "https://teams.microsoft.com")
	v.SetDefault("debugger_address", "127.0.0.1:9222")

	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_data_dir", "")

	v.SetDefault("login.step_timeout", 20*time.Second)
	v.SetDefault("login.implicit_wait", 5*time.Second)
	v.SetDefault("login.stay_signed_in_optional", false)
	v.SetDefault("login.stay_signed_in_probe", 5*time.Second)
	v.SetDefault("login.failure_screenshot", true)

	v.SetDefault("scrape.container_timeout", 10*time.Second)
	v.SetDefault("scrape.output_dir", ".")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
}

// Load reads .env, then an optional YAML config file, then TEAMS_*
// environment variables. With an empty path, teamscrape.yaml in the working
// directory is used when present.
func Load(path string) (*Config, error) {
	// A missing .env is normal; the environment may already be set.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("teamscrape")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return NewFromViper(v)
}

// NewFromViper binds the environment onto v and decodes it
func NewFromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("email", "TEAMS_EMAIL")
	_ = v.BindEnv("password", "TEAMS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that do not depend on how the browser is acquired.
// Credentials are checked separately by RequireCredentials since an attached
// session skips the login.
func (c *Config) Validate() error {
	var problems []string
	for name, d := range map[string]time.Duration{
		"login.step_timeout":         c.Login.StepTimeout,
		"login.implicit_wait":        c.Login.ImplicitWait,
		"login.stay_signed_in_probe": c.Login.StaySignedInProbe,
		"scrape.container_timeout":   c.Scrape.ContainerTimeout,
	} {
		if d <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive", name))
		}
	}
	if c.URL == "" {
		problems = append(problems, "url must be set")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
	}
	known := make(map[locator.Role]bool)
	for _, role := range locator.AllRoles() {
		known[role] = true
	}
	for key := range c.Locators {
		if !known[locator.Role(key)] {
			problems = append(problems, fmt.Sprintf("locators.%s is not a known role", key))
		}
	}
	if len(problems) > 0 {
		// Map iteration order is random; keep the message stable.
		sort.Strings(problems)
		return errors.New(strings.Join(problems, "; "))
	}
	return c.LocatorSet().Validate(locator.AllRoles()...)
}

// RequireCredentials fails when a login would run without both values
func (c *Config) RequireCredentials() error {
	if !c.Credentials().Complete() {
		return ErrMissingCredentials
	}
	return nil
}

// Credentials returns the sign-in identity
func (c *Config) Credentials() Credentials {
	return Credentials{Email: c.Email, Password: c.Password}
}

// LocatorSet returns the Teams locators with any configured overrides
func (c *Config) LocatorSet() locator.Set {
	overrides := make(locator.Set, len(c.Locators))
	for role, l := range c.Locators {
		overrides[locator.Role(role)] = l
	}
	return locator.Teams().Merge(overrides)
}

