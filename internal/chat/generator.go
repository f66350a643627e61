package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Generator produces an answer for a question grounded on the retrieved
// passages.
type Generator interface {
	Generate(ctx context.Context, question string, passages []Passage) (string, error)
}

const systemPrompt = "You are a support assistant for a gold-bullion admission service. " +
	"Answer using the provided context. If the answer is not in the context, say you do not have that information."

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string       `json:"model"`
	Messages []llmMessage `json:"messages"`
	Stream   bool         `json:"stream"`
}

type ollamaResponse struct {
	Message llmMessage `json:"message"`
}

// OllamaGenerator calls an Ollama-compatible chat completion endpoint.
type OllamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaGenerator builds the model client. baseURL and model come from
// configuration.
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	return &OllamaGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// Generate asks the model for an answer, feeding the passages as context.
func (g *OllamaGenerator) Generate(ctx context.Context, question string, passages []Passage) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model: g.model,
		Messages: []llmMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Context:\n" + contextText(passages) + "\n\nQuestion:\n" + question},
		},
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("model endpoint returned %d", resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	answer := strings.TrimSpace(out.Message.Content)
	if answer == "" {
		return "", errors.New("empty model response")
	}
	return answer, nil
}

func contextText(passages []Passage) string {
	if len(passages) == 0 {
		return "No relevant context found."
	}
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "Source %d:\n%s\n\n", i+1, p.Text)
	}
	return strings.TrimSpace(b.String())
}
