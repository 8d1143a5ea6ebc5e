package env

import "github.com/hedgewtf/zodial-watcher/common/config"

// Devnet deployment defaults, overridable through the environment.
const (
	DefaultRPCURL    = "https://api.devnet.solana.com"
	DefaultProgramID = "5E1ikr753b8RQZdtohZAY8wmpjn2hu9dWzrN5xEasmtu"
	DefaultMarket    = "7yhdt2wccHmcicRJpGxn42xTRC8yUnmz5qMFhmWYvsZA"
)

// IsCI returns true if we are in CI mode.
func IsCI() bool {
	ci := config.GetString("CI", "false")
	return ci == "true"
}
