// Package config handles configuration loading for cookie-jar.
//
// # Configuration File
//
// Locations (first match wins):
//
//  1. The --config flag
//  2. Path from the COOKIE_JAR_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/cookie-jar/config.yaml
//  4. ~/.config/cookie-jar/config.yaml
//
// A missing file at one of the default locations is not an error; Default
// is used instead. Files ending in .toml are parsed as TOML, everything else
// as YAML. Fields a file leaves out keep their default values.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${COOKIE_JAR_JWT_SECRET}"
//
// # Example
//
//	jar:
//	  initial: 10
//	server:
//	  transport: http
//	  http_addr: "localhost:8080"
//	ledger:
//	  path: "~/.local/share/cookie-jar/ledger.db"
//	metrics:
//	  enabled: true
//	  path: /metrics
//	ratelimit:
//	  rps: 5
//	  burst: 10
//	  idle_ttl: 10m
package config
