package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the identity provider
//	-b string   backend base URL
//	-d string   token database path
//	-i int      online check interval in seconds
//	-t int      identity provider call timeout in seconds
//	-o int      OAuth callback port
//	-l string   log level
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.IdentityProviderAddr, "a", cfg.IdentityProviderAddr, "address and port of the identity provider")
	fs.StringVar(&cfg.BackendURL, "b", cfg.BackendURL, "backend base URL")
	fs.StringVar(&cfg.TokenDBPath, "d", cfg.TokenDBPath, "token database path")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	providerTimeout := fs.Int("t", int(cfg.ProviderCallTimeout.Seconds()), "identity provider call timeout (in seconds)")
	fs.IntVar(&cfg.OAuthCallbackPort, "o", cfg.OAuthCallbackPort, "OAuth callback port")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := flagx.ParseKnown(fs, os.Args[1:]); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.ProviderCallTimeout = time.Duration(*providerTimeout) * time.Second
}
