package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// use timex.Duration so they can be written as "3s" or as nanoseconds.
// Pointer fields distinguish "absent" from "zero".
type JsonConfig struct {
	IdentityProviderAddr *string         `json:"identity_provider_addr"`
	BackendURL           *string         `json:"backend_url"`
	TokenDBPath          *string         `json:"token_db_path"`
	OnlineCheckInterval  *timex.Duration `json:"online_check_interval"`
	ProviderCallTimeout  *timex.Duration `json:"provider_call_timeout"`
	BackendCallTimeout   *timex.Duration `json:"backend_call_timeout"`
	FederatedTimeout     *timex.Duration `json:"federated_timeout"`
	OAuthCallbackPort    *int            `json:"oauth_callback_port"`
	LogLevel             *string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag nothing changes. Read or decode errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.IdentityProviderAddr, jc.IdentityProviderAddr)
	setString(&cfg.BackendURL, jc.BackendURL)
	setString(&cfg.TokenDBPath, jc.TokenDBPath)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.ProviderCallTimeout != nil {
		cfg.ProviderCallTimeout = jc.ProviderCallTimeout.Duration
	}
	if jc.BackendCallTimeout != nil {
		cfg.BackendCallTimeout = jc.BackendCallTimeout.Duration
	}
	if jc.FederatedTimeout != nil {
		cfg.FederatedTimeout = jc.FederatedTimeout.Duration
	}
	if jc.OAuthCallbackPort != nil {
		cfg.OAuthCallbackPort = *jc.OAuthCallbackPort
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
