// Package startup handles configuration loading and startup/shutdown
// logging for the media-catalog commands.
//
// # Configuration
//
// Configuration is resolved by viper from, in order of precedence, the
// environment (optionally seeded from a .env file via [LoadDotEnv]), an
// optional config file and the defaults registered by [SetDefaults]:
//
//   - MEDIA_ROOT: Root directory to catalog (default: /srv/media)
//   - PUBLIC_BASE_URL: Prefix for record URLs (default: http://localhost:8081)
//   - ALLOWED_EXTENSIONS: Comma-separated extension allowlist
//   - INDEX_DIR: Directory under MEDIA_ROOT holding generated files (default: index)
//   - INDEX_FILE, CACHE_FILE, DATABASE_FILE: File names inside INDEX_DIR
//   - INDEX_WORKERS: Hash worker count, 0 for automatic sizing
//   - INDEX_INTERVAL: Periodic rescan interval as Go duration, 0 disables (default: 30m)
//   - PORT: HTTP server port (default: 8002)
//   - MAX_FILE_SIZE: Upload limit in MiB (default: 100)
//   - API_TOKEN: Bearer token for upload and rescan endpoints
//   - METRICS_ENABLED: Serve /metrics (default: true)
//   - CORS_ORIGINS: Comma-separated allowed origins, empty allows any
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT: Container memory limit in bytes for GOMEMLIMIT sizing
//   - MEMORY_RATIO: Share of MEMORY_LIMIT given to the Go heap (default: 0.85)
//
// Malformed numbers, booleans and durations fall back to their defaults
// with a warning. An INDEX_DIR that is not a plain directory name is an
// error.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
