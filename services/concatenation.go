package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wawebhook/logger"
	"wawebhook/models"
	"wawebhook/repositories"
	"wawebhook/tools"
)

/************************************************
/**** MARK: NEW SESSION TEMPLATE ****/
/************************************************/
const FIRST_USER_MESSAGE_TEMPLATE = "%s\n\nTODAY UTC: %s. Rely on this date!"
const FIRST_USER_MESSAGE_DATE_FORMAT = "2 Jan 2006"

// FormatNewSessionMessage stamps the first message of a session with today's UTC date.
func FormatNewSessionMessage(text string, now time.Time) string {
	return fmt.Sprintf(FIRST_USER_MESSAGE_TEMPLATE, text, now.UTC().Format(FIRST_USER_MESSAGE_DATE_FORMAT))
}

// Decision is the outcome of the debounce wait.
// An empty Decision means no other message showed up: answer alone.
type Decision struct {
	NeedToStop bool
	MergedText string
	ClearIDs   []int64
}

// Concatenator merges rapid messages of a session into one turn. The
// message_processing table is the shared set of in-flight messages; the latest
// one in it wins and answers for the others.
type Concatenator struct {
	messages   *repositories.MessageRepository
	statuses   *repositories.MessageStatusRepository
	processing *repositories.MessageProcessingRepository
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	log        *logger.Logger
}

func NewConcatenator(repos *repositories.Repositories, log *logger.Logger) *Concatenator {
	return &Concatenator{
		messages:   repos.Messages,
		statuses:   repos.MessageStatuses,
		processing: repos.MessageProcessing,
		sleep:      tools.Sleep,
		now:        time.Now,
		log:        log.With("component", "Concatenator"),
	}
}

// AwaitAndDecide waits for wait, then decides whether messageID answers alone,
// answers for earlier messages too, or stops because a later message took over.
func (c *Concatenator) AwaitAndDecide(ctx context.Context, sessionID, messageID, statusID int64, isNewSession bool, wait time.Duration) (Decision, error) {
	c.log.Info("Waiting for new incoming messages", "session_id", sessionID, "message_id", messageID, "wait", wait.String())
	if err := c.sleep(ctx, wait); err != nil {
		return Decision{}, err
	}

	inFlight, err := c.processing.GetProcessingMessages(sessionID)
	if err != nil {
		return Decision{}, err
	}
	c.log.Debug("Processing messages", "session_id", sessionID, "count", len(inFlight))

	var decision Decision
	if len(inFlight) < 2 || !containsMessage(inFlight, messageID) {
		return decision, nil
	}

	latest := inFlight[len(inFlight)-1].MessageID
	if messageID == latest {
		// only rows already folded into this one; an earlier message still waiting answers on its own
		texts := make([]string, 0, len(inFlight))
		for _, item := range inFlight {
			if item.MessageID != messageID && (item.ConcatenatedMessageID == nil || *item.ConcatenatedMessageID != messageID) {
				continue
			}
			texts = append(texts, item.UserMessage)
			decision.ClearIDs = append(decision.ClearIDs, item.MessageID)
		}
		decision.MergedText = strings.Join(texts, "\n")
	} else {
		if err := c.messages.SetConcatenatedMessageID(messageID, latest); err != nil {
			return Decision{}, err
		}
		if err := c.statuses.UpdateMessageStatus(statusID, models.MESSAGE_STATUS_CONCATENATED); err != nil {
			return Decision{}, err
		}
		decision.NeedToStop = true
		c.log.Info("Message folded into a later one", "message_id", messageID, "concatenated_message_id", latest)
	}

	if isNewSession && decision.MergedText != "" {
		decision.MergedText = FormatNewSessionMessage(decision.MergedText, c.now())
	}
	return decision, nil
}

func containsMessage(items []repositories.ProcessingMessage, messageID int64) bool {
	for _, item := range items {
		if item.MessageID == messageID {
			return true
		}
	}
	return false
}
