package agent

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/seoflow/internal/logging"
	"github.com/fyrsmithlabs/seoflow/internal/secrets"
)

// TextGenerator produces a completion for a system and user prompt. Errors
// it returns are treated as transport failures.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// ModelInfo describes the generator for data._api_info.
type ModelInfo struct {
	Provider string
	Model    string
}

// Live executes an agent against a TextGenerator.
type Live struct {
	name     Name
	gen      TextGenerator
	info     ModelInfo
	scrubber secrets.Scrubber
	logger   *logging.Logger
}

// LiveOption configures a Live capability.
type LiveOption func(*Live)

// WithScrubber redacts credentials from prompt content before it is sent.
func WithScrubber(s secrets.Scrubber) LiveOption {
	return func(l *Live) { l.scrubber = s }
}

// WithLogger sets the logger used for prompt tracing.
func WithLogger(logger *logging.Logger) LiveOption {
	return func(l *Live) { l.logger = logger }
}

// NewLive returns the live capability for name.
func NewLive(name Name, gen TextGenerator, info ModelInfo, opts ...LiveOption) *Live {
	l := &Live{
		name:     name,
		gen:      gen,
		info:     info,
		scrubber: secrets.NoopScrubber{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lives returns a live capability for every agent sharing gen.
func Lives(gen TextGenerator, info ModelInfo, opts ...LiveOption) map[Name]Capability {
	out := make(map[Name]Capability, len(descriptions))
	for _, n := range All() {
		out[n] = NewLive(n, gen, info, opts...)
	}
	return out
}

func (l *Live) Name() Name { return l.name }

func (l *Live) Execute(ctx context.Context, in Context) (*StepOutput, error) {
	prompt := UserPrompt(l.name, in, func(s string) string {
		return l.scrubber.Scrub(s).Scrubbed
	})
	l.logger.Trace(ctx, "agent prompt built",
		zap.String("agent", string(l.name)),
		zap.Int("prompt_chars", len(prompt)),
	)

	text, err := l.gen.Generate(ctx, SystemPrompt(l.name), prompt)
	if err != nil {
		// Generators may already classify their errors.
		var ee ExecutionError
		if errors.As(err, &ee) {
			return nil, err
		}
		return nil, &TransportError{AgentName: l.name, Err: err}
	}

	out, err := parseStepOutput(l.name, text)
	if err != nil {
		l.logger.Debug(ctx, "agent response rejected",
			zap.String("agent", string(l.name)),
			zap.Int("response_chars", len(text)),
			zap.Error(err),
		)
		return nil, err
	}

	out.Data["_api_info"] = map[string]any{
		"model":     l.info.Model,
		"version":   l.info.Provider,
		"mock_data": false,
	}
	return out, nil
}
