// Package config handles configuration loading for pharma-gateway.
//
// Configuration is loaded from YAML files with ${VAR_NAME} environment
// variable expansion and time.ParseDuration syntax for duration values:
//
//	server:
//	  http_addr: "0.0.0.0:8000"
//	catalog:
//	  base_url: "https://api.example.com"
//	  timeout: "30s"
//	  retry_count: 3
//	  retry_delay: "1s"
//	agent:
//	  model: "gpt-4o-mini"
//	  temperature: 0.7
//	  max_tokens: 500
//	sessions:
//	  timeout: "30m"
//	  sweep_interval: "1m"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Load() applies defaults for omitted fields and validates that the server
// address and a catalog source (base_url or database_path) are present.
package config
