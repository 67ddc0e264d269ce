// Package config loads the runtime settings of the task API. Values are
// layered: defaults, then the YAML file named by CONFIG_FILE, then the
// environment (optionally seeded from a .env file), then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr     string        `yaml:"http_addr"`
	DatabaseURL  string        `yaml:"database_url"`
	SQLitePath   string        `yaml:"sqlite_path"`
	TokenSecret  string        `yaml:"token_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	BcryptCost   int           `yaml:"bcrypt_cost"`
	ConsulAddr   string        `yaml:"consul_addr"`
	RetryMax     int           `yaml:"retry_max"`
	RetryTimeout time.Duration `yaml:"retry_timeout"`
}

// Defaults returns the configuration used when nothing overrides it. The
// token secret has no default.
func Defaults() Config {
	return Config{
		HTTPAddr:     ":8080",
		SQLitePath:   "gorm.db",
		TokenTTL:     24 * time.Hour,
		BcryptCost:   bcrypt.DefaultCost,
		RetryMax:     3,
		RetryTimeout: 500 * time.Millisecond,
	}
}

var ErrSecretMissing = errors.New("token secret is required (TOKEN_SECRET or -token.secret)")

// Load builds the configuration for a process started with args (without
// the program name).
func Load(name string, args []string) (Config, error) {
	return load(name, args, Config.Validate)
}

// LoadGateway is Load for the API gateway, which needs neither a store nor
// the token secret.
func LoadGateway(name string, args []string) (Config, error) {
	return load(name, args, Config.validateGateway)
}

func load(name string, args []string, validate func(Config) error) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.parseFlags(name, args); err != nil {
		return Config{}, err
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.TokenSecret = getEnv("TOKEN_SECRET", c.TokenSecret)
	c.ConsulAddr = getEnv("CONSUL_ADDR", c.ConsulAddr)

	var err error
	if c.TokenTTL, err = getEnvAsDuration("TOKEN_TTL", c.TokenTTL); err != nil {
		return err
	}
	if c.BcryptCost, err = getEnvAsInt("BCRYPT_COST", c.BcryptCost); err != nil {
		return err
	}
	if c.RetryMax, err = getEnvAsInt("RETRY_MAX", c.RetryMax); err != nil {
		return err
	}
	if c.RetryTimeout, err = getEnvAsDuration("RETRY_TIMEOUT", c.RetryTimeout); err != nil {
		return err
	}
	return nil
}

func (c *Config) parseFlags(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&c.HTTPAddr, "http.addr", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.DatabaseURL, "database.url", c.DatabaseURL, "PostgreSQL DSN; SQLite is used when empty")
	fs.StringVar(&c.SQLitePath, "sqlite.path", c.SQLitePath, "SQLite database file")
	fs.StringVar(&c.TokenSecret, "token.secret", c.TokenSecret, "HMAC secret used to sign tokens")
	fs.DurationVar(&c.TokenTTL, "token.ttl", c.TokenTTL, "token lifetime")
	fs.IntVar(&c.BcryptCost, "bcrypt.cost", c.BcryptCost, "bcrypt work factor")
	fs.StringVar(&c.ConsulAddr, "consul.addr", c.ConsulAddr, "Consul agent address; no registration when empty")
	fs.IntVar(&c.RetryMax, "retry.max", c.RetryMax, "per-request retries to different instances")
	fs.DurationVar(&c.RetryTimeout, "retry.timeout", c.RetryTimeout, "per-request timeout, including retries")

	fs.Usage = usageFor(fs, name+" [flags]")
	return fs.Parse(args)
}

// Validate reports the first setting the process cannot start with.
func (c Config) Validate() error {
	switch {
	case c.TokenSecret == "":
		return ErrSecretMissing
	case c.TokenTTL <= 0:
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	case c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost:
		return fmt.Errorf("bcrypt cost must be within [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	case c.DatabaseURL == "" && c.SQLitePath == "":
		return errors.New("either a database url or a sqlite path is required")
	}
	return c.validateGateway()
}

func (c Config) validateGateway() error {
	switch {
	case c.HTTPAddr == "":
		return errors.New("http address is required")
	case c.RetryMax < 0:
		return fmt.Errorf("retry max must not be negative, got %d", c.RetryMax)
	case c.RetryTimeout <= 0:
		return fmt.Errorf("retry timeout must be positive, got %s", c.RetryTimeout)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		out := fs.Output()
		fmt.Fprintf(out, "USAGE\n")
		fmt.Fprintf(out, "  %s\n", short)
		fmt.Fprintf(out, "\n")
		fmt.Fprintf(out, "FLAGS\n")
		w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(out, "\n")
	}
}
