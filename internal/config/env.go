package config

import "os"

const (
	baseURLEnv   = "RCMATE_BASE_URL"
	apiTokenEnv  = "RCMATE_API_TOKEN"
	engineURLEnv = "RCMATE_ENGINE_URL"
)

// EnvOverrides holds connection parameters taken from the environment.
// Environment values win over the stored connection profile.
type EnvOverrides struct {
	BaseURL   string
	APIToken  string
	EngineURL string
}

// EnvConnection reads the connection overrides from the environment.
func EnvConnection() EnvOverrides {
	return EnvOverrides{
		BaseURL:   os.Getenv(baseURLEnv),
		APIToken:  os.Getenv(apiTokenEnv),
		EngineURL: os.Getenv(engineURLEnv),
	}
}
