package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/notioff/telesuper/internal/bus"
	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/engine"
)

const (
	defaultChatLimit    = 50
	defaultMessageLimit = 30
	eventBuffer         = 256
)

// Facade is the part of the cache the RPC service exposes.
type Facade interface {
	AuthState() engine.AuthState
	LastError() string
	Chats() []engine.Chat
	SelectChatList(sel cache.Selector)
	OpenChat(chatID, threadID int64)
	LoadMessages(ctx context.Context, chatID, threadID, fromID int64, limit int) int
	Messages() []engine.Message
	SendText(chatID, threadID int64, text string)
	StorageStatistics(ctx context.Context, chatLimit int) *engine.StorageStatistics
	LogOut()
	Reconnect() error
	Subscribe(namespace string, bufSize int) (<-chan bus.Event, func())
}

// Service implements FacadeServer over a Facade.
type Service struct {
	profile   string
	startedAt time.Time
	facade    Facade
	logger    *zap.Logger
}

// NewService creates the RPC service for one profile.
func NewService(profile string, facade Facade, logger *zap.Logger) *Service {
	return &Service{profile: profile, startedAt: time.Now(), facade: facade, logger: logger}
}

func (s *Service) GetStatus(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	state := s.facade.AuthState()
	return newStruct(map[string]any{
		"session":    s.profile,
		"auth_state": state.Kind.String(),
		"link":       state.Link,
		"last_error": s.facade.LastError(),
		"chat_count": len(s.facade.Chats()),
		"uptime_ms":  time.Since(s.startedAt).Milliseconds(),
	})
}

func (s *Service) ListChats(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sel, err := parseSelector(stringField(req, "selector"))
	if err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	limit := int(intField(req, "limit"))
	if limit <= 0 {
		limit = defaultChatLimit
	}

	s.facade.SelectChatList(sel)
	chats := s.facade.Chats()
	if len(chats) > limit {
		chats = chats[:limit]
	}
	list := make([]any, 0, len(chats))
	for i := range chats {
		list = append(list, chatValue(&chats[i]))
	}
	return newStruct(map[string]any{"selector": sel.Label(), "chats": list})
}

func (s *Service) ListMessages(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	chatID := intField(req, "chat_id")
	if chatID == 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "chat_id is required")
	}
	threadID := intField(req, "thread_id")
	limit := int(intField(req, "limit"))
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	s.facade.OpenChat(chatID, threadID)
	s.facade.LoadMessages(ctx, chatID, threadID, 0, limit)
	msgs := s.facade.Messages()
	list := make([]any, 0, len(msgs))
	for i := range msgs {
		list = append(list, messageValue(&msgs[i]))
	}
	return newStruct(map[string]any{"chat_id": chatID, "messages": list})
}

func (s *Service) SendText(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	chatID := intField(req, "chat_id")
	text := stringField(req, "text")
	if chatID == 0 || strings.TrimSpace(text) == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "chat_id and text are required")
	}
	s.facade.SendText(chatID, intField(req, "thread_id"), text)
	return newStruct(map[string]any{"queued": true})
}

func (s *Service) StorageStatistics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	stats := s.facade.StorageStatistics(ctx, int(intField(req, "chat_limit")))
	if stats == nil {
		return nil, grpcstatus.Error(codes.Unavailable, "storage statistics unavailable")
	}
	return newStruct(statsValue(stats))
}

func (s *Service) LogOut(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	s.facade.LogOut()
	return newStruct(map[string]any{"requested": true})
}

func (s *Service) Link(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.facade.Reconnect(); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "reconnect: %v", err)
	}
	return newStruct(map[string]any{"requested": true})
}

func (s *Service) WatchEvents(_ *structpb.Struct, stream grpc.ServerStream) error {
	ch, unsub := s.facade.Subscribe("cache.", eventBuffer)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			env, err := newStruct(map[string]any{
				"event_id":            uuid.NewString(),
				"session":             s.profile,
				"kind":                evt.Kind,
				"occurred_at_unix_ms": evt.Timestamp.UnixMilli(),
				"payload":             fmt.Sprint(evt.Payload),
			})
			if err != nil {
				return err
			}
			if err := stream.SendMsg(env); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func parseSelector(name string) (cache.Selector, error) {
	switch strings.ToLower(name) {
	case "", "all":
		return cache.AllChats, nil
	case "personal":
		return cache.PersonalChats, nil
	case "groups":
		return cache.GroupChats, nil
	case "channels":
		return cache.ChannelChats, nil
	}
	return cache.Selector{}, fmt.Errorf("unknown selector %q", name)
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

func intField(s *structpb.Struct, key string) int64 {
	return int64(s.GetFields()[key].GetNumberValue())
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}
