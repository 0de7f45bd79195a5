package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wawebhook/config"
	"wawebhook/repositories"
)

const OPENAI_RESPONSES_URL = "https://api.openai.com/v1/responses"

const defaultSystemPrompt = "You are a helpful, polite and direct WhatsApp assistant. Answer in the user's language."

// DialogHistory returns the finished turns of a session, oldest first.
type DialogHistory interface {
	GetMessageHistory(sessionID int64) ([]repositories.DialogTurn, error)
}

// OpenAIReplier answers a user turn with the OpenAI Responses API, replaying the
// session history as conversation input.
type OpenAIReplier struct {
	ApiKey       string
	Model        string
	SystemPrompt string
	URL          string
	HTTPClient   *http.Client
	history      DialogHistory
}

func NewOpenAIReplier(conf config.OpenAIConfig, history DialogHistory) *OpenAIReplier {
	prompt := strings.TrimSpace(conf.SystemPrompt)
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	return &OpenAIReplier{
		ApiKey:       conf.ApiKey,
		Model:        conf.Model,
		SystemPrompt: prompt,
		URL:          OPENAI_RESPONSES_URL,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		history:      history,
	}
}

type openAIInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (r *OpenAIReplier) Reply(ctx context.Context, sessionID int64, text string) (string, error) {
	if strings.TrimSpace(r.ApiKey) == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	var input []openAIInput
	if r.history != nil {
		turns, err := r.history.GetMessageHistory(sessionID)
		if err != nil {
			return "", err
		}
		for _, turn := range turns {
			input = append(input, openAIInput{Role: "user", Content: turn.UserMessage})
			if turn.BotMessage != nil && strings.TrimSpace(*turn.BotMessage) != "" {
				input = append(input, openAIInput{Role: "assistant", Content: *turn.BotMessage})
			}
		}
	}
	input = append(input, openAIInput{Role: "user", Content: text})

	b, err := json.Marshal(map[string]any{
		"model":        r.Model,
		"instructions": r.SystemPrompt,
		"input":        input,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+r.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	httpClient := r.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Output []struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && strings.TrimSpace(c.Text) != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(c.Text)
			}
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("empty response from model (no output_text items found)")
	}
	return out, nil
}
