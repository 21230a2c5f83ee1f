// Package config reads binary settings from flags with environment
// fallbacks. A .env file in the working directory is loaded first when
// present; real environment variables win over it.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL       = "http://localhost:8000"
	DefaultPingInterval = 30 * time.Second
	DefaultPort         = 8000
)

type Client struct {
	APIURL       string
	WSURL        string
	LogLevel     string
	LogFile      string
	PingInterval time.Duration
	ReadLimit    int64
	Models       []string
	ShowQR       bool
}

type Engine struct {
	Port     int
	LogLevel string
	// Imposter fixes the imposter seat of every game; -1 picks at random.
	Imposter int
}

// LoadDotEnv reads .env if it exists. Variables already set are kept.
func LoadDotEnv() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func LoadClient(args []string) (Client, error) {
	var (
		cfg       Client
		ping      string
		readLimit string
		models    string
	)

	flags := flag.NewFlagSet("client", flag.ContinueOnError)
	flags.StringVar(&cfg.APIURL, "api", "", "Game engine HTTP origin (API_URL)")
	flags.StringVar(&cfg.WSURL, "ws", "", "Push channel origin (WS_URL, derived from -api when empty)")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	flags.StringVar(&cfg.LogFile, "log-file", "", "Log destination (LOG_FILE, default stderr)")
	flags.StringVar(&ping, "ping", "", "Keepalive interval, 0 disables (PING_INTERVAL)")
	flags.StringVar(&readLimit, "read-limit", "", "Largest push frame accepted, e.g. 4MiB (READ_LIMIT)")
	flags.StringVar(&models, "models", "", "Comma separated roster of 4 models (MODELS)")
	flags.BoolVar(&cfg.ShowQR, "qr", false, "Show a QR code of the game id in the lobby (SHOW_QR)")

	if err := flags.Parse(args); err != nil {
		return Client{}, err
	}

	// Fall back to environment variables
	cfg.APIURL = strings.TrimRight(orEnv(cfg.APIURL, "API_URL", DefaultAPIURL), "/")
	cfg.WSURL = strings.TrimRight(orEnv(cfg.WSURL, "WS_URL", ""), "/")
	if cfg.WSURL == "" {
		u, err := pushOrigin(cfg.APIURL)
		if err != nil {
			return Client{}, err
		}
		cfg.WSURL = u
	}
	cfg.LogLevel = orEnv(cfg.LogLevel, "LOG_LEVEL", "info")
	cfg.LogFile = orEnv(cfg.LogFile, "LOG_FILE", "stderr")

	cfg.PingInterval = DefaultPingInterval
	if s := orEnv(ping, "PING_INTERVAL", ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			return Client{}, fmt.Errorf("invalid ping interval %q", s)
		}
		cfg.PingInterval = d
	}

	if s := orEnv(readLimit, "READ_LIMIT", ""); s != "" {
		n, err := humanize.ParseBytes(s)
		if err != nil || n == 0 {
			return Client{}, fmt.Errorf("invalid read limit %q", s)
		}
		cfg.ReadLimit = int64(n)
	}

	if s := orEnv(models, "MODELS", ""); s != "" {
		roster, err := parseRoster(s)
		if err != nil {
			return Client{}, err
		}
		cfg.Models = roster
	}

	if !cfg.ShowQR {
		if s := os.Getenv("SHOW_QR"); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return Client{}, errors.New("invalid SHOW_QR env variable")
			}
			cfg.ShowQR = b
		}
	}

	return cfg, nil
}

func LoadEngine(args []string) (Engine, error) {
	var cfg Engine

	flags := flag.NewFlagSet("fakeengine", flag.ContinueOnError)
	flags.IntVar(&cfg.Port, "p", 0, "Listen port (PORT)")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	flags.IntVar(&cfg.Imposter, "imposter", -1, "Fixed imposter seat 0-3, -1 for random (IMPOSTER)")

	if err := flags.Parse(args); err != nil {
		return Engine{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Engine{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	cfg.LogLevel = orEnv(cfg.LogLevel, "LOG_LEVEL", "info")

	if cfg.Imposter == -1 {
		if s := os.Getenv("IMPOSTER"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return Engine{}, errors.New("invalid IMPOSTER env variable")
			}
			cfg.Imposter = n
		}
	}
	if cfg.Imposter < -1 || cfg.Imposter > 3 {
		return Engine{}, fmt.Errorf("imposter seat %d out of range", cfg.Imposter)
	}

	return cfg, nil
}

func orEnv(v, key, def string) string {
	if v != "" {
		return v
	}
	if e := os.Getenv(key); e != "" {
		return e
	}
	return def
}

// pushOrigin maps http(s)://host to ws(s)://host.
func pushOrigin(api string) (string, error) {
	switch {
	case strings.HasPrefix(api, "https://"):
		return "wss://" + strings.TrimPrefix(api, "https://"), nil
	case strings.HasPrefix(api, "http://"):
		return "ws://" + strings.TrimPrefix(api, "http://"), nil
	}
	return "", fmt.Errorf("API URL %q must start with http:// or https://", api)
}

func parseRoster(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	roster := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("empty model name in roster %q", s)
		}
		roster = append(roster, p)
	}
	return roster, nil
}
