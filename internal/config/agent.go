package config

import (
	"errors"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentProviderName = "AFFWIKI_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "AFFWIKI_AGENT_BASE_URL"
	EnvAgentToken        = "AFFWIKI_AGENT_TOKEN"
	EnvAgentDeployment   = "AFFWIKI_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "AFFWIKI_AGENT_API_VERSION"
	EnvAgentAuthType     = "AFFWIKI_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "AFFWIKI_AGENT_MODEL_NAME"
)

// DefaultAgentName names the researcher when the config leaves it blank.
const DefaultAgentName = "affwiki-researcher"

// provider options settable from the environment, keyed by variable.
var agentOptionEnv = map[string]string{
	EnvAgentToken:      "token",
	EnvAgentDeployment: "deployment",
	EnvAgentAPIVersion: "api_version",
	EnvAgentAuthType:   "auth_type",
}

// FinalizeAgent completes the researcher's go-agents config. File values
// are layered over go-agents defaults, then the environment wins.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	if c.Name == "" {
		c.Name = DefaultAgentName
	}

	merged := gaconfig.DefaultAgentConfig()
	merged.Merge(c)
	*c = merged

	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = map[string]any{}
	}

	envString(EnvAgentProviderName, &c.Provider.Name)
	envString(EnvAgentBaseURL, &c.Provider.BaseURL)
	envString(EnvAgentModelName, &c.Model.Name)
	for env, key := range agentOptionEnv {
		if v := os.Getenv(env); v != "" {
			c.Provider.Options[key] = v
		}
	}

	if c.Provider.Name == "" {
		return errors.New("provider name required")
	}
	return nil
}
