package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Durations use timex.Duration, which accepts both strings such as "10m"
// and integer nanoseconds. Pointer fields tell "absent" from "zero".
type JsonConfig struct {
	EndpointAddrHTTP     *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC     *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN          *string         `json:"database_dsn"`
	SecretKey            *string         `json:"secret_key"`
	SessionTokenValidity *timex.Duration `json:"session_token_validity"`
	SessionValidity      *timex.Duration `json:"session_validity"`
	CodeValidity         *timex.Duration `json:"code_validity"`
	MaxCodeAttempts      *int            `json:"max_code_attempts"`
	OAuthStrategy        *string         `json:"oauth_strategy"`
	OAuthClientID        *string         `json:"oauth_client_id"`
	OAuthClientSecret    *string         `json:"oauth_client_secret"`
	OAuthAuthURL         *string         `json:"oauth_auth_url"`
	OAuthTokenURL        *string         `json:"oauth_token_url"`
	OAuthUserInfoURL     *string         `json:"oauth_userinfo_url"`
	RateLimit            *float64        `json:"rate_limit"`
	RateBurst            *int            `json:"rate_burst"`
	OTLPEndpoint         *string         `json:"otlp_endpoint"`
	LogLevel             *string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by -c or
// -config into config. Without either flag nothing is loaded. If the file
// cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionTokenValidity, c.SessionTokenValidity)
	setDuration(&config.SessionValidity, c.SessionValidity)
	setDuration(&config.CodeValidity, c.CodeValidity)
	if c.MaxCodeAttempts != nil {
		config.MaxCodeAttempts = *c.MaxCodeAttempts
	}
	setString(&config.OAuthStrategy, c.OAuthStrategy)
	setString(&config.OAuthClientID, c.OAuthClientID)
	setString(&config.OAuthClientSecret, c.OAuthClientSecret)
	setString(&config.OAuthAuthURL, c.OAuthAuthURL)
	setString(&config.OAuthTokenURL, c.OAuthTokenURL)
	setString(&config.OAuthUserInfoURL, c.OAuthUserInfoURL)
	if c.RateLimit != nil {
		config.RateLimit = *c.RateLimit
	}
	if c.RateBurst != nil {
		config.RateBurst = *c.RateBurst
	}
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
