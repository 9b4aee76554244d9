package llm

import (
	"context"
	"errors"
	"fmt"

	httputils "hanchat/hanchat/utils/http"
	"hanchat/hanchat/utils/logging"
)

// ErrNoChoices means the upstream answered 200 but carried no usable choice.
var ErrNoChoices = errors.New("no choices returned")

type GroqClient struct {
	baseURL string
	apiKey  string
}

// NewGroqClient returns a client pointing to the Groq Chat endpoint.
// Groq's OpenAI-compatible base path is https://api.groq.com/openai/v1
func NewGroqClient(apiKey string) *GroqClient {
	return &GroqClient{
		baseURL: "https://api.groq.com/openai/v1",
		apiKey:  apiKey,
	}
}

// NewGroqClientWithBaseURL exists for tests pointing at a local stub.
func NewGroqClientWithBaseURL(apiKey, baseURL string) *GroqClient {
	return &GroqClient{baseURL: baseURL, apiKey: apiKey}
}

// Run issues a single non-streaming chat completion and returns the first
// choice's content.
func (c *GroqClient) Run(ctx context.Context, req ChatRequest) (string, error) {
	defer logging.LogDuration(ctx, "groq_service_run")()

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)

	var resp struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		Created int64  `json:"created"`
		Model   string `json:"model"`
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}

	if err := httputils.PostJSONWithAuth(ctx, url, c.apiKey, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, nil
	}
	return "", ErrNoChoices
}
