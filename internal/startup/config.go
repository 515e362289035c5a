package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/workers"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration keys. Each is also read from the environment variable of
// the same name.
const (
	KeyMediaRoot         = "MEDIA_ROOT"
	KeyPublicBaseURL     = "PUBLIC_BASE_URL"
	KeyAllowedExtensions = "ALLOWED_EXTENSIONS"
	KeyIndexDir          = "INDEX_DIR"
	KeyIndexFile         = "INDEX_FILE"
	KeyCacheFile         = "CACHE_FILE"
	KeyDatabaseFile      = "DATABASE_FILE"
	KeyIndexWorkers      = "INDEX_WORKERS"
	KeyIndexInterval     = "INDEX_INTERVAL"
	KeyPort              = "PORT"
	KeyMaxFileSize       = "MAX_FILE_SIZE"
	KeyAPIToken          = "API_TOKEN"
	KeyMetricsEnabled    = "METRICS_ENABLED"
	KeyCORSOrigins       = "CORS_ORIGINS"
	KeyLogHealthChecks   = "LOG_HEALTH_CHECKS"
	KeyLogLevel          = "LOG_LEVEL"
	KeyMemoryLimit       = "MEMORY_LIMIT"
	KeyMemoryRatio       = "MEMORY_RATIO"
)

const (
	defaultIndexInterval = 30 * time.Minute
	defaultMaxFileSizeMB = 100
	maxIndexWorkers      = 8
	defaultMemoryRatio   = 0.85
)

// Config holds all application configuration
type Config struct {
	MediaRoot         string
	PublicBaseURL     string
	AllowedExtensions []string
	IndexDir          string
	IndexWorkers      int
	IndexInterval     time.Duration
	Port              string
	MaxFileSize       int64
	APIToken          string
	MetricsEnabled    bool
	CORSOrigins       []string
	LogHealthChecks   bool
	MemoryLimit       int64
	MemoryRatio       float64

	// Derived paths
	IndexPath    string
	SnapshotPath string
	CachePath    string
	DatabasePath string
}

// SetDefaults registers the default of every configuration key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMediaRoot, "/srv/media")
	v.SetDefault(KeyPublicBaseURL, "http://localhost:8081")
	v.SetDefault(KeyAllowedExtensions, mediatypes.DefaultAllowedExtensions)
	v.SetDefault(KeyIndexDir, "index")
	v.SetDefault(KeyIndexFile, "media_links.json")
	v.SetDefault(KeyCacheFile, "scanner_cache.json")
	v.SetDefault(KeyDatabaseFile, "scans.db")
	v.SetDefault(KeyIndexWorkers, "0")
	v.SetDefault(KeyIndexInterval, defaultIndexInterval.String())
	v.SetDefault(KeyPort, "8002")
	v.SetDefault(KeyMaxFileSize, strconv.Itoa(defaultMaxFileSizeMB))
	v.SetDefault(KeyAPIToken, "")
	v.SetDefault(KeyMetricsEnabled, "true")
	v.SetDefault(KeyCORSOrigins, "")
	v.SetDefault(KeyLogHealthChecks, "true")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMemoryLimit, "0")
	v.SetDefault(KeyMemoryRatio, strconv.FormatFloat(defaultMemoryRatio, 'f', -1, 64))
}

// LoadDotEnv loads a .env file into the environment. A missing file is
// not an error; variables already set are never overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	logging.Debug("Loaded environment from %s", path)
	return nil
}

// NewViper returns a viper instance with defaults and environment
// binding, reading configFile when it is set.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
		logging.Info("Loaded configuration file %s", configFile)
	}
	return v, nil
}

// LoadConfig resolves and validates the configuration held by v. Invalid
// numbers and durations fall back to their defaults with a warning.
func LoadConfig(v *viper.Viper) (*Config, error) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if level := v.GetString(KeyLogLevel); level != "" && os.Getenv("DEBUG") == "" {
		if parsed, ok := logging.ParseLevel(level); ok {
			logging.SetLevel(parsed)
		} else {
			logging.Warn("  Invalid LOG_LEVEL %q, keeping %s", level, logging.GetLevel())
		}
	}

	mediaRoot, err := filepath.Abs(v.GetString(KeyMediaRoot))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media root path: %w", err)
	}

	indexDir, err := validateIndexDir(v.GetString(KeyIndexDir))
	if err != nil {
		return nil, err
	}

	extensions := mediatypes.ParseExtensions(v.GetString(KeyAllowedExtensions))
	if len(extensions) == 0 {
		logging.Warn("  Empty ALLOWED_EXTENSIONS, using defaults")
		extensions = mediatypes.ParseExtensions(mediatypes.DefaultAllowedExtensions)
	}

	configuredWorkers := parseInt(v, KeyIndexWorkers, 0)
	if configuredWorkers < 0 {
		logging.Warn("  Negative INDEX_WORKERS, using automatic sizing")
		configuredWorkers = 0
	}

	maxFileSizeMB := parseInt(v, KeyMaxFileSize, defaultMaxFileSizeMB)
	if maxFileSizeMB <= 0 {
		logging.Warn("  MAX_FILE_SIZE must be positive, using default: %d", defaultMaxFileSizeMB)
		maxFileSizeMB = defaultMaxFileSizeMB
	}

	indexPath := filepath.Join(mediaRoot, indexDir)

	config := &Config{
		MediaRoot:         mediaRoot,
		PublicBaseURL:     strings.TrimRight(v.GetString(KeyPublicBaseURL), "/"),
		AllowedExtensions: extensions,
		IndexDir:          indexDir,
		IndexWorkers:      workers.Resolve(configuredWorkers, maxIndexWorkers),
		IndexInterval:     parseDuration(v, KeyIndexInterval, defaultIndexInterval),
		Port:              v.GetString(KeyPort),
		MaxFileSize:       int64(maxFileSizeMB) * 1024 * 1024,
		APIToken:          v.GetString(KeyAPIToken),
		MetricsEnabled:    parseBool(v, KeyMetricsEnabled, true),
		CORSOrigins:       splitList(v.GetString(KeyCORSOrigins)),
		LogHealthChecks:   parseBool(v, KeyLogHealthChecks, true),
		MemoryLimit:       int64(parseInt(v, KeyMemoryLimit, 0)),
		MemoryRatio:       parseFloat(v, KeyMemoryRatio, defaultMemoryRatio),
		IndexPath:         indexPath,
		SnapshotPath:      filepath.Join(indexPath, v.GetString(KeyIndexFile)),
		CachePath:         filepath.Join(indexPath, v.GetString(KeyCacheFile)),
		DatabasePath:      filepath.Join(indexPath, v.GetString(KeyDatabaseFile)),
	}

	logging.Info("  MEDIA_ROOT:          %s", config.MediaRoot)
	logging.Info("  PUBLIC_BASE_URL:     %s", config.PublicBaseURL)
	logging.Info("  ALLOWED_EXTENSIONS:  %s", strings.Join(config.AllowedExtensions, ","))
	logging.Info("  INDEX_DIR:           %s", config.IndexPath)
	logging.Info("  INDEX_WORKERS:       %d", config.IndexWorkers)
	logging.Info("  INDEX_INTERVAL:      %v", config.IndexInterval)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  MAX_FILE_SIZE:       %d MB", maxFileSizeMB)
	logging.Info("  API_TOKEN:           %s", setString(config.APIToken != ""))
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if err := ensureDirectory(config.MediaRoot, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	return config, nil
}

// validateIndexDir accepts a single relative path segment.
func validateIndexDir(dir string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(dir))
	if cleaned == "." || cleaned == "" || filepath.IsAbs(cleaned) ||
		strings.ContainsRune(cleaned, filepath.Separator) || strings.HasPrefix(cleaned, ".") {
		return "", fmt.Errorf("INDEX_DIR must be a plain directory name inside MEDIA_ROOT, got %q", dir)
	}
	return cleaned, nil
}

func parseInt(v *viper.Viper, key string, defaultValue int) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logging.Warn("  Invalid %s %q, using default: %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func parseFloat(v *viper.Viper, key string, defaultValue float64) float64 {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logging.Warn("  Invalid %s %q, using default: %.2f", key, raw, defaultValue)
		return defaultValue
	}
	return f
}

func parseDuration(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		logging.Warn("  Invalid %s %q, using default: %v", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func parseBool(v *viper.Viper, key string, defaultValue bool) bool {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, raw, defaultValue)
		return defaultValue
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(set bool) string {
	if set {
		return "(set)"
	}
	return "(not set)"
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}
