package mode

import (
	"fmt"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
	"github.com/fyrsmithlabs/seoflow/internal/config"
	"github.com/fyrsmithlabs/seoflow/internal/llm"
	"github.com/fyrsmithlabs/seoflow/internal/logging"
	"github.com/fyrsmithlabs/seoflow/internal/secrets"
)

// ConfigurationError reports a live decision that cannot be turned into a
// working client. It is only returned at startup.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Capabilities builds the agent set bound to d. Mock decisions never fail.
func Capabilities(d Decision, agents config.AgentsConfig, logger *logging.Logger, scrubber secrets.Scrubber) (map[agent.Name]agent.Capability, agent.ModelInfo, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if !d.IsLive() {
		return agent.Mocks(agents.Model), agent.ModelInfo{Provider: string(Mock), Model: agents.Model}, nil
	}

	switch agents.Provider {
	case config.ProviderAnthropic, config.ProviderOpenAI:
	default:
		return nil, agent.ModelInfo{}, &ConfigurationError{Reason: fmt.Sprintf("unknown provider %q", agents.Provider)}
	}

	client, err := llm.New(llm.ConfigFrom(agents, d.Credential), llm.WithLogger(logger.Named("llm")))
	if err != nil {
		return nil, agent.ModelInfo{}, &ConfigurationError{Reason: "creating live client", Err: err}
	}

	opts := []agent.LiveOption{agent.WithLogger(logger.Named("agent"))}
	if scrubber != nil {
		opts = append(opts, agent.WithScrubber(scrubber))
	}
	return agent.Lives(client, client.Info(), opts...), client.Info(), nil
}
