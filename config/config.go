package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de surebet.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Scanner ScannerConfig `yaml:"scanner"`
	Cache   CacheConfig   `yaml:"cache"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig contiene el base URL del backend de escaneo.
type APIConfig struct {
	ScanBase string `yaml:"scan_base"`
}

// ScannerConfig controla el comportamiento del orquestador de escaneo.
type ScannerConfig struct {
	IncludeProps   bool    `yaml:"include_props"`    // escanear también player props
	OnSubScanError string  `yaml:"on_subscan_error"` // skip | collect | abort
	DefaultStake   float64 `yaml:"default_stake"`    // bankroll por defecto para el desglose de stakes
}

// CacheConfig controla la caché local de catálogos (deportes y bookmakers).
type CacheConfig struct {
	DSN                string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o "" para desactivar
	SportsTTLMinutes   int    `yaml:"sports_ttl_minutes"`
	BookmakersTTLHours int    `yaml:"bookmakers_ttl_hours"`
}

// ServerConfig controla el servidor web local (-serve).
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SportsTTL devuelve el TTL de la caché de deportes como time.Duration.
func (c *Config) SportsTTL() time.Duration {
	return time.Duration(c.Cache.SportsTTLMinutes) * time.Minute
}

// BookmakersTTL devuelve el TTL de la caché de bookmakers como time.Duration.
func (c *Config) BookmakersTTL() time.Duration {
	return time.Duration(c.Cache.BookmakersTTLHours) * time.Hour
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCAN_API_BASE"); v != "" {
		cfg.API.ScanBase = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.API.ScanBase == "" {
		cfg.API.ScanBase = "http://localhost:3000/api"
	}
	if cfg.Scanner.OnSubScanError == "" {
		cfg.Scanner.OnSubScanError = "skip"
	}
	if cfg.Scanner.DefaultStake <= 0 {
		cfg.Scanner.DefaultStake = 100
	}
	if cfg.Cache.SportsTTLMinutes <= 0 {
		cfg.Cache.SportsTTLMinutes = 60
	}
	if cfg.Cache.BookmakersTTLHours <= 0 {
		// El backend sirve bookmakers con Cache-Control max-age de un día
		cfg.Cache.BookmakersTTLHours = 24
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
