package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/seoflow/internal/config"
)

type fakeModel struct {
	mock.Mock
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	args := m.Called(ctx, messages)
	resp, _ := args.Get(0).(*llms.ContentResponse)
	return resp, args.Error(1)
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func reply(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func testConfig() Config {
	return Config{
		Provider:       config.ProviderAnthropic,
		Model:          "claude-3-opus-20240229",
		APIKey:         config.Secret("sk-ant-test"),
		MaxTokens:      4000,
		Temperature:    0.7,
		RateLimit:      1000,
		Burst:          10,
		MaxRetries:     3,
		BaseBackoff:    time.Millisecond,
		RequestTimeout: time.Second,
	}
}

func newTestClient(model llms.Model, cfg Config) (*Client, *[]time.Duration) {
	c := NewWithModel(model, cfg)
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept
}

func TestGenerate_SendsSystemAndUserMessages(t *testing.T) {
	m := new(fakeModel)
	m.On("GenerateContent", mock.Anything, mock.MatchedBy(func(msgs []llms.MessageContent) bool {
		if len(msgs) != 2 {
			return false
		}
		sys, ok1 := msgs[0].Parts[0].(llms.TextContent)
		usr, ok2 := msgs[1].Parts[0].(llms.TextContent)
		return ok1 && ok2 &&
			msgs[0].Role == llms.ChatMessageTypeSystem && sys.Text == "be an expert" &&
			msgs[1].Role == llms.ChatMessageTypeHuman && usr.Text == "analyze this"
	})).Return(reply(`{"analysis":"ok"}`), nil).Once()

	c, slept := newTestClient(m, testConfig())
	got, err := c.Generate(context.Background(), "be an expert", "analyze this")
	require.NoError(t, err)
	assert.Equal(t, `{"analysis":"ok"}`, got)
	assert.Empty(t, *slept)
	m.AssertExpectations(t)
}

func TestGenerate_RetriesTransientErrors(t *testing.T) {
	m := new(fakeModel)
	m.On("GenerateContent", mock.Anything, mock.Anything).
		Return(nil, errors.New("API returned unexpected status code: 529: overloaded")).Twice()
	m.On("GenerateContent", mock.Anything, mock.Anything).
		Return(reply("done"), nil).Once()

	c, slept := newTestClient(m, testConfig())
	got, err := c.Generate(context.Background(), "s", "p")
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, *slept)
	m.AssertExpectations(t)
}

func TestGenerate_MaxRetriesExceeded(t *testing.T) {
	m := new(fakeModel)
	m.On("GenerateContent", mock.Anything, mock.Anything).
		Return(nil, errors.New("status 429: rate limit exceeded"))

	cfg := testConfig()
	cfg.MaxRetries = 2
	c, slept := newTestClient(m, cfg)

	_, err := c.Generate(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Len(t, *slept, 2)
	m.AssertNumberOfCalls(t, "GenerateContent", 3)
}

func TestGenerate_ZeroRetriesMakesOneAttempt(t *testing.T) {
	m := new(fakeModel)
	m.On("GenerateContent", mock.Anything, mock.Anything).
		Return(nil, errors.New("status 429: rate limit exceeded"))

	cfg := testConfig()
	cfg.MaxRetries = 0
	c, slept := newTestClient(m, cfg)

	_, err := c.Generate(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Empty(t, *slept)
	m.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestGenerate_PermanentErrorNotRetried(t *testing.T) {
	m := new(fakeModel)
	m.On("GenerateContent", mock.Anything, mock.Anything).
		Return(nil, errors.New("status 401: invalid x-api-key"))

	c, slept := newTestClient(m, testConfig())
	_, err := c.Generate(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid x-api-key")
	assert.Empty(t, *slept)
	m.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestGenerate_EmptyResponse(t *testing.T) {
	m := new(fakeModel)
	m.On("GenerateContent", mock.Anything, mock.Anything).
		Return(&llms.ContentResponse{}, nil)

	c, _ := newTestClient(m, testConfig())
	_, err := c.Generate(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerate_AttemptTimeoutIsRetryable(t *testing.T) {
	m := new(fakeModel)
	m.On("GenerateContent", mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded).Once()
	m.On("GenerateContent", mock.Anything, mock.Anything).
		Return(reply("late but fine"), nil).Once()

	c, slept := newTestClient(m, testConfig())
	got, err := c.Generate(context.Background(), "s", "p")
	require.NoError(t, err)
	assert.Equal(t, "late but fine", got)
	assert.Len(t, *slept, 1)
}

func TestGenerate_CancelledContext(t *testing.T) {
	m := new(fakeModel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newTestClient(m, testConfig())
	_, err := c.Generate(ctx, "s", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	m.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything)
}

func TestNew(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		cfg := testConfig()
		cfg.APIKey = ""
		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider = "cohere"
		_, err := New(cfg)
		assert.ErrorContains(t, err, "unsupported provider")
	})

	t.Run("anthropic", func(t *testing.T) {
		c, err := New(testConfig())
		require.NoError(t, err)
		assert.Equal(t, "anthropic", c.Info().Provider)
		assert.Equal(t, "claude-3-opus-20240229", c.Info().Model)
	})

	t.Run("openai", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider = config.ProviderOpenAI
		cfg.Model = "gpt-4o"
		cfg.APIKey = config.Secret("sk-test")
		c, err := New(cfg)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", c.Info().Model)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&retryableError{err: errors.New("x")}))
	assert.True(t, isRetryable(errors.New("HTTP 503 Service Unavailable")))
	assert.True(t, isRetryable(errors.New("unexpected EOF")))
	assert.False(t, isRetryable(errors.New("400 bad request: max_tokens too large")))
}

func TestConfigFrom(t *testing.T) {
	a := config.AgentsConfig{
		Provider:       config.ProviderAnthropic,
		Model:          "m",
		MaxTokens:      10,
		Temperature:    0.2,
		RateLimit:      1,
		Burst:          2,
		MaxRetries:     4,
		BaseBackoff:    time.Second,
		RequestTimeout: time.Minute,
	}
	cfg := ConfigFrom(a, config.Secret("k"))
	assert.Equal(t, "k", cfg.APIKey.Value())
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.RequestTimeout)
}
