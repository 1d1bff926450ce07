package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agent-api/core/pkg/agent"
	"github.com/agent-api/core/types"
	"github.com/agent-api/ollama"
)

const systemPrompt = "You are a cataloguing assistant. You look at a photo of a single physical object " +
	"and name it the way it would appear on an inventory label."

// AgentConfig holds the Ollama connection settings
type AgentConfig struct {
	BaseURL string
	Port    int
	Model   string
}

// NewAgent initializes and returns a new vision agent
func NewAgent(ctx context.Context, cfg AgentConfig, logger *slog.Logger) (*agent.DefaultAgent, error) {
	if err := checkOllama(ctx, cfg); err != nil {
		return nil, err
	}

	// Set up Ollama provider
	opts := &ollama.ProviderOpts{
		Logger:  logger,
		BaseURL: cfg.BaseURL,
		Port:    cfg.Port,
	}
	provider := ollama.NewProvider(opts)

	model := &types.Model{
		ID: cfg.Model,
	}
	provider.UseModel(ctx, model)

	agentConf := &agent.NewAgentConfig{
		Provider:     provider,
		Logger:       logger,
		SystemPrompt: systemPrompt,
	}

	return agent.NewAgent(agentConf), nil
}

// checkOllama verifies the Ollama API is reachable
func checkOllama(ctx context.Context, cfg AgentConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s:%d/api/tags", strings.TrimSuffix(cfg.BaseURL, "/"), cfg.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %w", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

// agentRunner adapts the ollama agent to the Runner interface
type agentRunner struct {
	agent *agent.DefaultAgent
}

// NewAgentRunner wraps a vision agent
func NewAgentRunner(a *agent.DefaultAgent) Runner {
	return &agentRunner{agent: a}
}

func (r *agentRunner) Describe(ctx context.Context, prompt, imagePath string) (string, error) {
	response, err := r.agent.Run(
		ctx,
		agent.WithInput(prompt),
		agent.WithImagePath(imagePath),
	)
	if err != nil {
		return "", err
	}

	if len(response.Messages) == 0 {
		return "", fmt.Errorf("no response messages received from model")
	}

	// Get the model's response (not the prompt)
	return response.Messages[len(response.Messages)-1].Content, nil
}
