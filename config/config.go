package config

import (
	"errors"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const envPrefix = "SURVEYFLOW_"

type Config struct {
	Addr           string
	APIUrl         string
	PublicURL      string
	LoginURL       string
	AutosaveDelay  time.Duration
	FormIdleTTL    time.Duration
	RequestTimeout time.Duration

	DBUrl         string
	TokenSecret   string
	TokenTTL      time.Duration
	AdminUser     string
	AdminPassword string

	Debug bool

	host string
	port uint
}

// LoadEnv reads a .env file into the process environment when one exists.
// Variables already set in the environment win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func bindCommon(fs *pflag.FlagSet, cfg *Config, defaultPort uint) {
	fs.StringVar(&cfg.host, "host", env("HOST", "0.0.0.0"), "listen host name")
	fs.UintVar(&cfg.port, "port", envUint("PORT", defaultPort), "listen port number")
	fs.BoolVar(&cfg.Debug, "debug", envBool("DEBUG", false), "log at DEBUG level")
}

// BindServe registers the flags of the web frontend.
func BindServe(fs *pflag.FlagSet, cfg *Config) {
	bindCommon(fs, cfg, 8080)
	fs.StringVar(&cfg.APIUrl, "api-url", env("API_URL", "http://localhost:8000"), "base URL of the survey API")
	fs.StringVar(&cfg.PublicURL, "public-url", env("PUBLIC_URL", ""), "externally visible base URL, used in share links")
	fs.StringVar(&cfg.LoginURL, "login-url", env("LOGIN_URL", ""), "external login entry point (defaults to the local login page)")
	fs.DurationVar(&cfg.AutosaveDelay, "autosave-delay", envDuration("AUTOSAVE_DELAY", 2*time.Second), "quiet period before a draft is autosaved")
	fs.DurationVar(&cfg.FormIdleTTL, "form-idle-ttl", envDuration("FORM_IDLE_TTL", 30*time.Minute), "evict form sessions idle for longer than this")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", envDuration("REQUEST_TIMEOUT", 15*time.Second), "timeout of API requests")
}

// BindDevAPI registers the flags of the development API server.
func BindDevAPI(fs *pflag.FlagSet, cfg *Config) {
	bindCommon(fs, cfg, 8000)
	fs.StringVar(&cfg.DBUrl, "db-url", env("DB_URL", "surveyflow.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", env("TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", envDuration("TOKEN_TTL", 24*time.Hour), "access token TTL")
	fs.StringVar(&cfg.AdminUser, "admin-user", env("ADMIN_USER", ""), "create or update this admin user on start")
	fs.StringVar(&cfg.AdminPassword, "admin-password", env("ADMIN_PASSWORD", ""), "password of -admin-user")
}

// Finish computes derived fields once flags are parsed.
func (cfg *Config) Finish() {
	cfg.Addr = net.JoinHostPort(cfg.host, strconv.Itoa(int(cfg.port)))
	cfg.APIUrl = strings.TrimRight(cfg.APIUrl, "/")
	if cfg.PublicURL == "" {
		cfg.PublicURL = cfg.Url()
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
}

func (cfg Config) ValidateServe() error {
	if cfg.APIUrl == "" {
		return errors.New("missing parameter --api-url")
	}
	if cfg.AutosaveDelay <= 0 {
		return errors.New("--autosave-delay must be positive")
	}
	return nil
}

func (cfg Config) ValidateDevAPI() error {
	if cfg.TokenSecret == "" {
		return errors.New("missing parameter --token-secret")
	}
	if (cfg.AdminUser == "") != (cfg.AdminPassword == "") {
		return errors.New("--admin-user and --admin-password go together")
	}
	return nil
}

var reAnyHost = regexp.MustCompile(`^0\.0\.0\.0`)

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = reAnyHost.ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		return v
	}
	return def
}

func envUint(key string, def uint) uint {
	n, err := strconv.ParseUint(env(key, ""), 10, 32)
	if err != nil {
		return def
	}
	return uint(n)
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(env(key, ""))
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(env(key, ""))
	if err != nil {
		return def
	}
	return d
}
