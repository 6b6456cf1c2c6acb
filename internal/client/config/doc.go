// Package config loads runtime configuration for the gophauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. GOPHAUTH_* environment variables.
//  4. Command-line flags, which override everything else.
//
// # JSON schema
//
//	{
//	  "identity_provider_addr": "127.0.0.1:50051",
//	  "backend_url": "http://127.0.0.1:8080",
//	  "token_db_path": "gophauth.db",
//	  "online_check_interval": "3s",
//	  "provider_call_timeout": "15s",
//	  "backend_call_timeout": "10s",
//	  "federated_timeout": "5m",
//	  "oauth_callback_port": 0,
//	  "log_level": "info"
//	}
package config
