package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const systemPrompt = `You are a professional social media manager.
Generate brief, friendly, and helpful responses to customer posts.
Keep responses under 280 characters. Be empathetic and solution-oriented.
Never make promises you can't keep. Always maintain brand voice.
Make sure you stick closely to the canned examples and only tweak responses where necessary.`

// OllamaGenerator generates replies using a local Ollama server.
type OllamaGenerator struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewOllamaGenerator(endpoint, model string, maxTokens int, temperature float64) *OllamaGenerator {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &OllamaGenerator{
		endpoint:    strings.TrimRight(endpoint, "/"),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{},
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	chatReq := ollamaChatRequest{
		Model:  g.model,
		Stream: false,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		Options: ollamaOptions{
			Temperature: g.temperature,
			NumPredict:  g.maxTokens,
		},
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text := strings.TrimSpace(result.Message.Content)
	if text == "" {
		return "", fmt.Errorf("ollama returned an empty reply")
	}
	return text, nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer post: %q\n\n", req.MentionText)
	fmt.Fprintf(&b, "Intent: %s\n", req.Intent)
	fmt.Fprintf(&b, "Sentiment: %s\n", req.Sentiment)
	if req.CannedExample != "" {
		fmt.Fprintf(&b, "\nSimilar past responses: %s\n", req.CannedExample)
	}
	b.WriteString("\nGenerate a brief, appropriate reply:")
	return b.String()
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}
