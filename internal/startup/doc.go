// Package startup handles configuration loading and startup/shutdown
// logging for the gallery server.
//
// # Configuration
//
// [LoadConfig] first loads an optional .env file from the working directory
// (values already in the environment win), then reads:
//
//   - DATA_DIR: root holding public/data or data/image-metadata.json (default: /data)
//   - IMAGES_DIR: directory served under /images/ (default: $DATA_DIR/public/images)
//   - DATABASE_DIR: directory for the analytics event store (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: enable or disable the metrics server (default: true)
//   - SITE_URL: canonical origin used in structured data (default: https://streambackdrops.com)
//   - SITE_NAME: credit and creator name in structured data (default: StreamBackdrops)
//   - MARKETPLACE_URL: storefront for premium purchase links (default: https://gumroad.com)
//   - CATEGORIES_FILE: YAML category table replacing the built-in one
//   - TRANSCODER: imaging or vips (default: imaging)
//   - DOWNLOAD_FORMAT: png, tiff or bmp (default: png)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: log /images requests (default: false)
//   - LOG_HEALTH_CHECKS: log health check requests (default: true)
//
// A missing or read-only DATABASE_DIR disables the event store instead of
// failing startup.
//
// # Build Information
//
// Version, Commit and BuildTime are injected with -ldflags and exposed by
// [GetBuildInfo].
package startup
