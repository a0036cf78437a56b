package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type intentResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

type sentimentResponse struct {
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// OpenAIClassifier scores intent and sentiment with chat completions and
// produces embeddings with the embeddings endpoint.
type OpenAIClassifier struct {
	client         *openai.Client
	model          string
	embeddingModel string
	maxTokens      int
	temperature    float64
	intentLabels   []string
	logger         *zap.Logger
}

func NewOpenAIClassifier(apiKey, model, embeddingModel string, maxTokens int, temperature float64, intentLabels []string, logger *zap.Logger) *OpenAIClassifier {
	return &OpenAIClassifier{
		client:         openai.NewClient(apiKey),
		model:          model,
		embeddingModel: embeddingModel,
		maxTokens:      maxTokens,
		temperature:    temperature,
		intentLabels:   intentLabels,
		logger:         logger,
	}
}

func (c *OpenAIClassifier) ClassifyIntent(ctx context.Context, text string) (Result, error) {
	prompt := fmt.Sprintf(`Classify the intent of the following social media post.
Pick exactly one label from this list:
- %s

Return the response as a JSON object with this structure:
{
    "intent": "chosen_label",
    "confidence": 0.0
}

Post: %s`, strings.Join(c.intentLabels, "\n- "), text)

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	var parsed intentResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.Error("Failed to parse intent response",
			zap.Error(err),
			zap.String("response", raw))
		return Result{}, fmt.Errorf("parsing intent response: %w", err)
	}
	return Result{Label: strings.ToLower(parsed.Intent), Confidence: parsed.Confidence}, nil
}

func (c *OpenAIClassifier) ClassifySentiment(ctx context.Context, text string) (Result, error) {
	prompt := fmt.Sprintf(`Classify the sentiment of the following social media post
as "positive", "negative" or "neutral".

Return the response as a JSON object with this structure:
{
    "sentiment": "positive|negative|neutral",
    "confidence": 0.0
}

Post: %s`, text)

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	var parsed sentimentResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.Error("Failed to parse sentiment response",
			zap.Error(err),
			zap.String("response", raw))
		return Result{}, fmt.Errorf("parsing sentiment response: %w", err)
	}
	return Result{Label: strings.ToLower(parsed.Sentiment), Confidence: parsed.Confidence}, nil
}

func (c *OpenAIClassifier) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClassifier) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
