package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OllamaClient talks to a local Ollama server for both embeddings and text generation.
type OllamaClient struct {
	host           string
	embeddingModel string
	summaryModel   string
	client         *http.Client
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func NewOllamaClient(host, embeddingModel, summaryModel string) *OllamaClient {
	return &OllamaClient{
		host:           strings.TrimRight(host, "/"),
		embeddingModel: embeddingModel,
		summaryModel:   summaryModel,
		client:         &http.Client{},
	}
}

// Embed returns the embedding vector for text. Timeouts come from ctx.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	var embResp embedResponse
	if err := c.post(ctx, "/api/embed", embedRequest{Model: c.embeddingModel, Input: text}, &embResp); err != nil {
		return nil, err
	}
	if len(embResp.Embeddings) == 0 || len(embResp.Embeddings[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return embResp.Embeddings[0], nil
}

// Generate runs a non-streaming completion for prompt.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	var genResp generateResponse
	if err := c.post(ctx, "/api/generate", generateRequest{Model: c.summaryModel, Prompt: prompt, Stream: false}, &genResp); err != nil {
		return "", err
	}
	return genResp.Response, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
