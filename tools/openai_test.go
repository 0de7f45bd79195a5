package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wawebhook/config"
	"wawebhook/repositories"
)

type staticHistory []repositories.DialogTurn

func (h staticHistory) GetMessageHistory(int64) ([]repositories.DialogTurn, error) {
	return h, nil
}

func TestOpenAIReplier_SendsHistory(t *testing.T) {
	t.Parallel()

	var got struct {
		Model        string        `json:"model"`
		Instructions string        `json:"instructions"`
		Input        []openAIInput `json:"input"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"tudo bem"}]}]}`))
	}))
	t.Cleanup(srv.Close)

	bot := "olá"
	replier := NewOpenAIReplier(config.OpenAIConfig{ApiKey: "k", Model: "m"}, staticHistory{
		{UserMessage: "oi", BotMessage: &bot},
	})
	replier.URL = srv.URL

	reply, err := replier.Reply(context.Background(), 1, "como vai?")
	if err != nil {
		t.Fatalf("Reply() error: %v", err)
	}
	if reply != "tudo bem" {
		t.Fatalf("expected reply %q, got %q", "tudo bem", reply)
	}
	if got.Model != "m" || got.Instructions == "" {
		t.Fatalf("unexpected request %+v", got)
	}
	want := []openAIInput{
		{Role: "user", Content: "oi"},
		{Role: "assistant", Content: "olá"},
		{Role: "user", Content: "como vai?"},
	}
	if len(got.Input) != len(want) {
		t.Fatalf("expected input %v, got %v", want, got.Input)
	}
	for i := range want {
		if got.Input[i] != want[i] {
			t.Fatalf("expected input %v, got %v", want, got.Input)
		}
	}
}

func TestOpenAIReplier_RequiresKey(t *testing.T) {
	t.Parallel()

	replier := NewOpenAIReplier(config.OpenAIConfig{}, nil)
	if _, err := replier.Reply(context.Background(), 1, "oi"); err == nil {
		t.Fatalf("expected error without api key")
	}
}
