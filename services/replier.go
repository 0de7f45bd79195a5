package services

import "context"

// EchoReplier answers with the (possibly merged) user text itself.
type EchoReplier struct{}

func (EchoReplier) Reply(_ context.Context, _ int64, text string) (string, error) {
	return text, nil
}
