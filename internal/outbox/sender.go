package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/store"
)

// Message statuses of outgoing messages.
const (
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

const pollInterval = 500 * time.Millisecond

// Transport delivers a text message to the network.
type Transport interface {
	SendText(ctx context.Context, jid string, text string) (serverMsgID string, err error)
}

// Listener is told about every stored change to an outgoing message.
type Listener interface {
	OutgoingStored(m *store.Message, created bool)
}

// Sender drains the outbox through a Transport.
type Sender struct {
	db        *store.DB
	transport Transport
	listener  Listener
	logger    *zap.Logger
	wake      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, transport Transport, listener Listener, logger *zap.Logger) *Sender {
	return &Sender{
		db:        db,
		transport: transport,
		listener:  listener,
		logger:    logger,
		wake:      make(chan struct{}, 1),
	}
}

// Queue adds a text message to the outbox and returns its client id.
func (s *Sender) Queue(chatJID, text string) (string, error) {
	id := uuid.NewString()
	if err := s.db.QueueOutbox(id, chatJID, text); err != nil {
		return "", err
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return id, nil
}

// Start requeues entries interrupted by a previous run and begins draining.
func (s *Sender) Start(ctx context.Context) {
	if n, err := s.db.RequeueInterrupted(); err != nil {
		s.logger.Warn("requeue interrupted outbox entries", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("requeued interrupted outbox entries", zap.Int64("count", n))
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop stops the sender loop and waits for it to exit.
func (s *Sender) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}

func (s *Sender) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		s.processPending(ctx)
		select {
		case <-ticker.C:
		case <-s.wake:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sender) processPending(ctx context.Context) {
	pending, err := s.db.PendingOutbox()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}
	for _, entry := range pending {
		if ctx.Err() != nil {
			return
		}
		s.send(ctx, entry)
	}
}

func (s *Sender) send(ctx context.Context, entry store.OutboxEntry) {
	log := s.logger.With(zap.String("client_msg_id", entry.ClientMsgID))
	if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
		log.Error("failed to mark sending", zap.Error(err))
		return
	}

	// Stored before the send so the message shows up right away.
	msg := &store.Message{
		ChatJID:   entry.ChatJID,
		MsgID:     entry.ClientMsgID,
		Kind:      "text",
		Body:      entry.Body,
		FromMe:    true,
		Status:    StatusSending,
		Timestamp: time.Now().UnixMilli(),
	}
	created, err := s.db.UpsertMessage(msg)
	if err != nil {
		log.Error("failed to store outgoing message", zap.Error(err))
	} else {
		s.notify(msg, created)
	}

	serverMsgID, sendErr := s.transport.SendText(ctx, entry.ChatJID, entry.Body)
	if sendErr != nil {
		log.Error("failed to send message", zap.Error(sendErr))
		if err := s.db.MarkOutboxFailed(entry.ClientMsgID, sendErr.Error()); err != nil {
			log.Error("failed to mark failed", zap.Error(err))
		}
		s.settle(msg, entry.ClientMsgID, StatusFailed)
		return
	}

	if err := s.db.MarkOutboxSent(entry.ClientMsgID, serverMsgID); err != nil {
		log.Error("failed to mark sent", zap.Error(err))
	}
	s.settle(msg, serverMsgID, StatusSent)
	log.Info("message sent", zap.String("server_msg_id", serverMsgID))
}

// settle records the final id and status of a stored outgoing message.
func (s *Sender) settle(msg *store.Message, msgID, status string) {
	if msg.ID == 0 {
		return
	}
	if err := s.db.SetMessageServerID(msg.ID, msgID, status); err != nil {
		s.logger.Error("failed to update outgoing message", zap.Error(err), zap.Int64("row", msg.ID))
		return
	}
	msg.MsgID, msg.Status = msgID, status
	s.notify(msg, false)
}

func (s *Sender) notify(msg *store.Message, created bool) {
	if s.listener != nil {
		m := *msg
		s.listener.OutgoingStored(&m, created)
	}
}
