package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMessageNotCreated = errors.New("message was not created")
	ErrMarkAsReadFailed  = errors.New("message marking as read failed")
	ErrSendFailed        = errors.New("message sending failed")
	ErrMissingText       = errors.New("message text not provided")
)

// BatchError carries every entry failure of one webhook update.
type BatchError struct {
	Errors []string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d error(s) while processing update: %s", len(e.Errors), strings.Join(e.Errors, "; "))
}
