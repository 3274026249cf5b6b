// Package config handles configuration loading for profile-service.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The file format is chosen from the extension: ".toml" selects
// TOML, anything else is read as YAML.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PROFILE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/profile/service.yaml
//  3. ~/.config/profile/service.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${PROFILE_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  grpc_addr: "0.0.0.0:50051"   # optional, enables the gRPC health service
//	  allowed_origins:
//	    - "http://localhost:3000"
//
// Database:
//
//	database:
//	  driver: "sqlite"   # sqlite (pure Go) or sqlite3 (cgo)
//	  path: "/var/lib/profile/accounts.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${PROFILE_JWT_SECRET}"   # at least 32 bytes
//	  ephemeral_key: false                  # random key per process instead of jwt_secret
//	  issuer: "profile-service"
//	  token_ttl: "1h"
//	  policy: "authenticated"               # authenticated, permit_all
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - Presence of the HTTP address and database path
//   - Database driver name
//   - Exactly one key source (jwt_secret or ephemeral_key)
//   - Duration format validity
//   - Authorization policy values
package config
