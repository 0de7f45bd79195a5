package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"wawebhook/config"
	"wawebhook/logger"
	"wawebhook/models"
	"wawebhook/repositories"
	"wawebhook/tools"
)

// Messenger is the outbound provider client.
type Messenger interface {
	MarkAsRead(ctx context.Context, phoneNumberID, waMessageID string) bool
	SendMessage(ctx context.Context, phoneNumber, phoneNumberID, text string) (*tools.MessageCallback, error)
}

// Replier produces the bot answer for a user turn.
type Replier interface {
	Reply(ctx context.Context, sessionID int64, text string) (string, error)
}

// DeliveredCache remembers provider ids already answered. The store stays
// authoritative; a cache miss or error only costs the database lookups.
type DeliveredCache interface {
	IsDelivered(ctx context.Context, waMessageID string) (bool, error)
	MarkDelivered(ctx context.Context, waMessageID string, messageID int64) error
}

type Processor struct {
	repos        *repositories.Repositories
	sessions     *SessionResolver
	concatenator *Concatenator
	messenger    Messenger
	replier      Replier
	cache        DeliveredCache
	conf         config.ProcessingConfig
	types        MessageTypes
	now          func() time.Time
	log          *logger.Logger
}

type ProcessorOption func(*Processor)

func WithDeliveredCache(cache DeliveredCache) ProcessorOption {
	return func(p *Processor) { p.cache = cache }
}

// WithClock replaces time.Now in every time decision of the processor.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// WithSleep replaces the debounce wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ProcessorOption {
	return func(p *Processor) { p.concatenator.sleep = sleep }
}

func NewProcessor(repos *repositories.Repositories, messenger Messenger, replier Replier, conf config.ProcessingConfig, log *logger.Logger, opts ...ProcessorOption) *Processor {
	if replier == nil {
		replier = EchoReplier{}
	}
	p := &Processor{
		repos:        repos,
		concatenator: NewConcatenator(repos, log),
		messenger:    messenger,
		replier:      replier,
		conf:         conf,
		types: MessageTypes{
			Supported:   conf.SupportedTypes,
			Unsupported: conf.UnsupportedTypes,
		},
		now: time.Now,
		log: log.With("component", "Processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sessions = NewSessionResolver(repos.Sessions, p.now)
	p.concatenator.now = p.now
	return p
}

// batch is the state of one ProcessUpdates call.
type batch struct {
	errors  []string
	pending map[int64]struct{}
}

func (b *batch) addError(msg string) {
	b.errors = append(b.errors, msg)
}

// ProcessUpdates runs every entry of the update. Entry failures are collected
// and returned together as a *BatchError once all entries ran. In-flight rows
// added by this call are removed whatever happens.
func (p *Processor) ProcessUpdates(ctx context.Context, update models.WebhookUpdate) error {
	p.log.Info("Processing updates", "entries", len(update.Entry))

	b := &batch{pending: map[int64]struct{}{}}
	defer p.cleanup(b)

	for _, entry := range update.Entry {
		ids, err := p.safeProcessEntry(ctx, entry, b)
		for _, id := range ids {
			b.pending[id] = struct{}{}
		}
		if err != nil {
			msg := fmt.Sprintf("Error processing entry %s. %v", entry.ID, err)
			p.log.Error(msg)
			b.addError(msg)
		}
	}

	if len(b.errors) == 0 {
		p.log.Info("Updates successfully processed")
		return nil
	}
	return &BatchError{Errors: b.errors}
}

func (p *Processor) cleanup(b *batch) {
	ids := make([]int64, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := p.repos.MessageProcessing.DeleteProcessingMessage(id); err != nil {
			p.log.Error("Failed to clear processing row", "message_id", id, "error", err)
		}
	}
}

func (p *Processor) safeProcessEntry(ctx context.Context, entry models.WebhookEntry, b *batch) (ids []int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.processEntry(ctx, entry, b)
}

// processEntry returns the message ids whose processing rows the batch must clear.
func (p *Processor) processEntry(ctx context.Context, entry models.WebhookEntry, b *batch) ([]int64, error) {
	cls, err := ClassifyEntry(entry, p.types)
	if err != nil {
		return nil, err
	}

	switch cls.Kind {
	case EntryEmpty:
		p.log.Debug("Entry message is empty", "entry_id", entry.ID)
		return nil, nil
	case EntryReadReceipt:
		return nil, p.markOpened(cls.Recipient)
	case EntryUnsupported:
		if p.types.IsUnsupported(cls.Message.Type) {
			p.log.Warn("Message type is unsupported, skipping", "type", cls.Message.Type, "wa_message_id", cls.Message.WaMessageID)
		} else {
			p.log.Warn("Unknown message type, skipping", "type", cls.Message.Type, "wa_message_id", cls.Message.WaMessageID)
		}
		return nil, nil
	}

	in := cls.Message
	log := p.log.With("entry_id", entry.ID, "wa_message_id", in.WaMessageID)

	if p.cache != nil {
		delivered, err := p.cache.IsDelivered(ctx, in.WaMessageID)
		if err != nil {
			log.Warn("Delivered cache lookup failed", "error", err)
		} else if delivered {
			log.Warn("Message already delivered, skipping")
			return nil, nil
		}
	}

	userID, _, err := p.repos.Users.GetUserID(in.UserName, in.PhoneNumber, in.PhoneNumberID)
	if err != nil {
		return nil, err
	}

	now := p.now()
	if in.Timestamp.Before(now.Add(-SessionWindow)) {
		log.Warn("Can not process message due to expired session", "timestamp", in.Timestamp)
		return nil, nil
	}

	var messageID int64
	existing, err := p.repos.Messages.GetMessage(in.WaMessageID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		messageID = existing.ID
		skip, err := p.alreadyHandled(messageID)
		if err != nil {
			return nil, err
		}
		if skip {
			log.Warn("Message is already processing or processed, skipping", "message_id", messageID)
			return nil, nil
		}
	}

	log.Info("Got message from user", "user_name", in.UserName, "phone_number", in.PhoneNumber)

	session, err := p.sessions.Resolve(userID, in.Timestamp, models.CHANNEL_WHATSAPP)
	if err != nil {
		return nil, err
	}
	log = log.With("session_id", session.SessionID)

	if messageID == 0 {
		messageID, err = p.repos.Messages.CreateMessage(session.SessionID, in.Timestamp, in.Text, in.WaMessageID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMessageNotCreated, err)
		}
		if messageID == 0 {
			return nil, ErrMessageNotCreated
		}
	}

	if err := p.repos.MessageProcessing.CreateProcessingMessage(messageID, session.SessionID); err != nil {
		return nil, err
	}
	b.pending[messageID] = struct{}{}

	statusID, err := p.repos.MessageStatuses.GetMessageStatusID(messageID, models.MESSAGE_STATUS_PROCESSING, now)
	if err != nil {
		return nil, err
	}
	log.Info("Message stored", "message_id", messageID, "status_id", statusID)

	if !p.messenger.MarkAsRead(ctx, in.PhoneNumberID, in.WaMessageID) {
		return nil, fmt.Errorf("%w for message with id %d", ErrMarkAsReadFailed, messageID)
	}
	if err := p.repos.MessageStatuses.UpdateMessageStatus(statusID, models.MESSAGE_STATUS_READ); err != nil {
		return nil, err
	}

	text := in.Text
	if session.IsNewSession {
		text = FormatNewSessionMessage(text, now)
	}

	decision, err := p.concatenator.AwaitAndDecide(ctx, session.SessionID, messageID, statusID, session.IsNewSession, p.conf.ConcatenationWait())
	if err != nil {
		return nil, err
	}
	if decision.NeedToStop {
		delete(b.pending, messageID)
		return decision.ClearIDs, nil
	}
	if decision.MergedText != "" {
		text = decision.MergedText
	}

	reply, err := p.replier.Reply(ctx, session.SessionID, text)
	if err != nil {
		return nil, fmt.Errorf("reply to message %d: %w", messageID, err)
	}
	if err := p.repos.Messages.SetBotMessage(messageID, reply); err != nil {
		return nil, err
	}

	callback, sendErr := p.messenger.SendMessage(ctx, in.PhoneNumber, in.PhoneNumberID, reply)
	if sendErr != nil || callback == nil {
		if sendErr == nil {
			sendErr = errors.New("empty callback")
		}
		if err := p.repos.MessageStatuses.UpdateMessageStatus(statusID, models.MESSAGE_STATUS_FAILED_TO_SEND); err != nil {
			log.Error("Failed to store failed_to_send status", "error", err)
		}
		return nil, fmt.Errorf("%w for message with id %d: %v", ErrSendFailed, messageID, sendErr)
	}

	if err := p.repos.MessageStatuses.UpdateMessageStatus(statusID, models.MESSAGE_STATUS_DELIVERED); err != nil {
		return nil, err
	}
	if err := p.repos.Messages.SetRepliedTimestamp(messageID, p.now()); err != nil {
		return nil, err
	}
	if p.cache != nil {
		if err := p.cache.MarkDelivered(ctx, in.WaMessageID, messageID); err != nil {
			log.Warn("Failed to cache delivered message", "error", err)
		}
	}
	log.Info("Message delivered", "message_id", messageID)

	if len(decision.ClearIDs) > 0 {
		return decision.ClearIDs, nil
	}
	return []int64{messageID}, nil
}

// alreadyHandled reports a duplicate provider delivery: the message is in flight
// or its reply already went out.
func (p *Processor) alreadyHandled(messageID int64) (bool, error) {
	processing, err := p.repos.MessageProcessing.IsMessageProcessing(messageID)
	if err != nil {
		return false, err
	}
	if processing {
		return true, nil
	}
	status, err := p.repos.Messages.GetMessageStatus(messageID)
	if err != nil {
		return false, err
	}
	return status == models.MESSAGE_STATUS_DELIVERED || status == models.MESSAGE_STATUS_OPENED, nil
}

// markOpened moves every delivered message of the recipient's users to opened.
func (p *Processor) markOpened(recipient string) error {
	p.log.Info("Processing message read status", "recipient_id", recipient)

	delivered, err := p.repos.Messages.GetUserDeliveredMessages(recipient)
	if err != nil {
		return err
	}
	for _, m := range delivered {
		if err := p.repos.MessageStatuses.UpdateMessageStatus(m.StatusID, models.MESSAGE_STATUS_OPENED); err != nil {
			return err
		}
	}
	p.log.Info("Messages marked as opened", "recipient_id", recipient, "count", len(delivered))
	return nil
}
