// Package gemini implements the generation endpoint using the Google
// Gen AI SDK's structured-output mode.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/acordeiro/cellbook/pkg/generate"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Generator implements generate.ObjectGenerator against Gemini.
type Generator struct {
	client *genai.Client
	model  string
}

// Verify interface compliance.
var _ generate.ObjectGenerator = (*Generator)(nil)

// New creates a Generator. An empty model selects DefaultModel.
func New(ctx context.Context, apiKey, model string) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: client, model: model}, nil
}

// GenerateObject submits the prompt with the schema attached as a
// response constraint and returns the raw JSON object text.
func (g *Generator) GenerateObject(ctx context.Context, prompt string, schema *genai.Schema) (json.RawMessage, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty model response")
	}
	return json.RawMessage(text), nil
}
