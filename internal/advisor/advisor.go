// Package advisor wraps the generative-text collaborator: prompt in,
// text out. Prompt construction belongs to callers.
package advisor

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

// New creates an advisory client. The API key comes from the standard
// GEMINI_API_KEY / GOOGLE_API_KEY environment variables handled by the
// genai SDK. An empty model selects DefaultModel.
func New(ctx context.Context, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: client, model: model}, nil
}

// Generate sends the prompt and returns the model's text response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", errors.New("empty prompt")
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}
