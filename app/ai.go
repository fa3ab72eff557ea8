// Package app classifies new tasks into one of the fixed labels via an
// OpenAI chat completion.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/zaefsikder/task-app/app/config"
	"github.com/zaefsikder/task-app/app/models"
)

const (
	openaiBaseURL = "https://api.openai.com/v1/chat/completions"
	openaiModel   = "gpt-4o-mini"
)

// LabelClassifier asks a language model for exactly one label from the fixed
// set. One attempt, no retry; callers degrade to an unlabeled task on error.
type LabelClassifier struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var classifier *LabelClassifier

// InitClassifier wires the OpenAI API key from the environment. A missing key
// leaves classification disabled; task creation still works unlabeled.
func InitClassifier() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for classifier: %v", err)
	}
	if cfg.OpenAI.APIKey == "" {
		log.Print("OPENAI_API_KEY missing; task classification disabled")
		return
	}
	classifier = NewLabelClassifier(cfg.OpenAI.APIKey)
}

func NewLabelClassifier(apiKey string) *LabelClassifier {
	return &LabelClassifier{
		apiKey:  apiKey,
		baseURL: openaiBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Classify returns the validated label for a task, or an error when the model
// call fails or its output is not one of the five labels.
func (lc *LabelClassifier) Classify(ctx context.Context, title, description string) (models.Label, error) {
	labelValues := make([]string, 0, len(models.Labels))
	for _, l := range models.Labels {
		labelValues = append(labelValues, string(l))
	}

	reqBody := chatRequest{
		Model: openaiModel,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: fmt.Sprintf(
					"You classify tasks. Reply with exactly one of: %s. No other words.",
					strings.Join(labelValues, ", "),
				),
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Title: %s\nDescription: %s", title, description),
			},
		},
		Temperature: 0,
		MaxTokens:   5,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lc.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+lc.apiKey)

	resp, err := lc.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr chatError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("openai: %s", apiErr.Error.Message)
		}
		return "", fmt.Errorf("openai: http %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}

	label, ok := models.ParseLabel(parsed.Choices[0].Message.Content)
	if !ok {
		return "", fmt.Errorf("model returned invalid label %q", parsed.Choices[0].Message.Content)
	}
	return label, nil
}
