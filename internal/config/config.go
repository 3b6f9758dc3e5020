package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/minedash/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory under $HOME holding config and uploads.
const DirName = ".minedash"

// Global configuration structure.
type Global struct {
	DataDir      string `mapstructure:"data_dir" yaml:"data_dir"`
	CatalogFile  string `mapstructure:"catalog_file" yaml:"catalog_file"`
	WorkspaceDir string `mapstructure:"workspace_dir" yaml:"workspace_dir"`
	DefaultTopN  int    `mapstructure:"default_top_n" yaml:"default_top_n"`

	// HTTP server
	ListenAddr     string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	CORSOrigins    []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	AdminTokenHash string   `mapstructure:"admin_token_hash" yaml:"admin_token_hash"`

	// Geocoding
	GeocoderURL         string  `mapstructure:"geocoder_url" yaml:"geocoder_url"`
	GeocoderUserAgent   string  `mapstructure:"geocoder_user_agent" yaml:"geocoder_user_agent"`
	GeocodeRPS          float64 `mapstructure:"geocode_rps" yaml:"geocode_rps"`
	GeocodeWorkers      int     `mapstructure:"geocode_workers" yaml:"geocode_workers"`
	GeocodeTimeoutSec   int     `mapstructure:"geocode_timeout_sec" yaml:"geocode_timeout_sec"`
	GeocodeFallbackFile string  `mapstructure:"geocode_fallback_file" yaml:"geocode_fallback_file"`

	// Optional tidy-record sink
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"data_dir", "catalog_file", "workspace_dir", "default_top_n",
	"listen_addr", "cors_origins", "admin_token_hash",
	"geocoder_url", "geocoder_user_agent", "geocode_rps", "geocode_workers",
	"geocode_timeout_sec", "geocode_fallback_file",
	"postgres_dsn",
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.minedash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := homeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. The nearest .env file in the
// working directory or one of its parents is loaded into the environment
// first, without overriding variables already set.
func Load(cfgFile string) (*Global, error) {
	if p, err := utils.FindUp("", ".env"); err == nil {
		_ = godotenv.Load(p)
	}

	v := viper.New()
	v.SetEnvPrefix("MINEDASH")
	v.AutomaticEnv()

	v.SetDefault("data_dir", "data")
	v.SetDefault("catalog_file", "")
	v.SetDefault("workspace_dir", "")
	v.SetDefault("default_top_n", 10)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("admin_token_hash", "")
	v.SetDefault("geocoder_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder_user_agent", "minedash/1.0")
	v.SetDefault("geocode_rps", 1.0)
	v.SetDefault("geocode_workers", 4)
	v.SetDefault("geocode_timeout_sec", 5)
	v.SetDefault("geocode_fallback_file", "")
	v.SetDefault("postgres_dsn", "")

	dir, err := homeDir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// cors_origins may arrive from env as one comma separated string
	c.CORSOrigins = splitList(strings.Join(c.CORSOrigins, ","))
	if c.WorkspaceDir == "" {
		c.WorkspaceDir = filepath.Join(dir, "workspace")
	}
	return &c, nil
}

// Set assigns a single key from its string form.
func Set(c *Global, key, val string) error {
	switch key {
	case "data_dir":
		c.DataDir = val
	case "catalog_file":
		c.CatalogFile = val
	case "workspace_dir":
		c.WorkspaceDir = val
	case "default_top_n":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for default_top_n: %v", val)
		}
		c.DefaultTopN = i
	case "listen_addr":
		c.ListenAddr = val
	case "cors_origins":
		c.CORSOrigins = splitList(val)
	case "admin_token_hash":
		c.AdminTokenHash = val
	case "geocoder_url":
		c.GeocoderURL = val
	case "geocoder_user_agent":
		c.GeocoderUserAgent = val
	case "geocode_rps":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for geocode_rps: %v", val)
		}
		c.GeocodeRPS = f
	case "geocode_workers":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for geocode_workers: %v", val)
		}
		c.GeocodeWorkers = i
	case "geocode_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for geocode_timeout_sec: %v", val)
		}
		c.GeocodeTimeoutSec = i
	case "geocode_fallback_file":
		c.GeocodeFallbackFile = val
	case "postgres_dsn":
		c.PostgresDSN = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
