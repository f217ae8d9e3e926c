package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/mixaill76/ads_insight_agent/internal/config"
)

type geminiClient struct {
	client *genai.Client
	model  string
}

func newGeminiClient(cfg config.LLMConfig) (*geminiClient, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &geminiClient{client: client, model: cfg.Model}, nil
}

func (c *geminiClient) Provider() string { return config.ProviderGemini }

func (c *geminiClient) Close() error { return nil }

func (c *geminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	genCfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini completion: %w", err)
	}

	out := &Response{
		Text:  resp.Text(),
		Model: c.model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}
