// Package config handles configuration loading for stellara-admin.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from STELLARA_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/stellara/admin.yaml
//  3. ~/.config/stellara/admin.yaml
//
// Files ending in .toml are decoded as TOML; anything else is YAML.
//
// # Environment
//
// A .env file next to the config file, or in the working directory, is loaded
// before parsing. Values already present in the environment win. Config values
// can then reference variables:
//
//	session:
//	  secret: "${STELLARA_SESSION_SECRET}"
//
// # Sections
//
//	server:
//	  http_addr: "localhost:8090"
//
//	backend:
//	  base_url: "https://stellara-server-1.onrender.com"
//	  timeout: "15s"
//
//	database:
//	  path: "/var/lib/stellara/admin.db"
//
//	session:
//	  secret: "${STELLARA_SESSION_SECRET}"  # seals stored backend tokens
//	  duration: "12h"
//	  sweep_interval: "10m"
//	  secure_cookie: false
//
//	catalog:
//	  categories: [perfumes, bags, shoes, beddings]
//	  summary_categories: [bags, perfumes, beddings]
//
//	tailscale:
//	  enabled: false
//	  hostname: "stellara-admin"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: false
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: false
//	  path: "/metrics"
package config
