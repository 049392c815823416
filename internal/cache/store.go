package cache

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/bus"
	"github.com/notioff/telesuper/internal/credstore"
	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/status"
)

// Notifier receives download progress for file updates.
type Notifier interface {
	DownloadProgress(fileID int32, percent int, title string)
	DownloadComplete(fileID int32, title string)
}

// Params holds the dependencies of a Store.
type Params struct {
	// Engine is the initial engine. When nil, Start builds one with Factory.
	Engine  engine.Engine
	Factory engine.Factory
	Bus     *bus.Bus
	Creds   *credstore.Store
	// DataDir is the engine database directory, removed after a full logout.
	DataDir  string
	Notifier Notifier
	Logger   *zap.Logger
}

// Store is the single boundary between presentation and the engine. It owns
// the engine handle and the mutable chat, file and user maps, and publishes
// immutable snapshots of everything derived from them.
type Store struct {
	factory  engine.Factory
	bus      *bus.Bus
	creds    *credstore.Store
	dataDir  string
	notifier Notifier
	logger   *zap.Logger
	auth     *status.Projection

	engMu    sync.Mutex
	eng      engine.Engine
	baseCtx  context.Context
	stopLoop context.CancelFunc
	loopDone chan struct{}

	mu       sync.Mutex
	chats    map[int64]*engine.Chat
	files    map[int32]engine.File
	users    map[int64]engine.UserStatus
	folders  []engine.ChatFolder
	selector Selector
	active   windowKey
	isOpen   bool
	window   []engine.Message

	chatSnap    atomic.Pointer[[]engine.Chat]
	msgSnap     atomic.Pointer[[]engine.Message]
	fileSnap    atomic.Pointer[map[int32]engine.File]
	folderSnap  atomic.Pointer[[]engine.ChatFolder]
	lastError   atomic.Pointer[string]
	ageBot      atomic.Pointer[string]
	selectorVal atomic.Pointer[Selector]
}

// ErrNoEngine is returned by Start when neither an engine nor a factory is set.
var ErrNoEngine = errors.New("cache: no engine and no factory")

// New creates a store. The engine is not read until Start.
func New(p Params) *Store {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		factory:  p.Factory,
		bus:      p.Bus,
		creds:    p.Creds,
		dataDir:  p.DataDir,
		notifier: p.Notifier,
		logger:   logger,
		auth:     status.NewProjection(p.Bus),
		eng:      p.Engine,
		baseCtx:  context.Background(),
		chats:    make(map[int64]*engine.Chat),
		files:    make(map[int32]engine.File),
		users:    make(map[int64]engine.UserStatus),
		selector: AllChats,
	}
	s.publishChatsLocked()
	s.publishMessagesLocked()
	s.publishFilesLocked()
	s.publishFoldersLocked()
	empty := ""
	s.lastError.Store(&empty)
	s.ageBot.Store(&empty)
	return s
}

// Start attaches the engine and begins folding its updates into the cache.
func (s *Store) Start(ctx context.Context) error {
	s.engMu.Lock()
	defer s.engMu.Unlock()
	s.baseCtx = context.WithoutCancel(ctx)
	if s.eng == nil {
		if s.factory == nil {
			return ErrNoEngine
		}
		eng, err := s.factory()
		if err != nil {
			return err
		}
		s.eng = eng
	}
	s.attachLocked()
	return nil
}

// Stop ends the update loop and closes the engine.
func (s *Store) Stop() error {
	s.engMu.Lock()
	eng := s.eng
	cancel, done := s.stopLoop, s.loopDone
	s.eng, s.stopLoop, s.loopDone = nil, nil, nil
	s.engMu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if eng != nil {
		err = eng.Close()
	}
	if done != nil {
		<-done
	}
	return err
}

func (s *Store) attachLocked() {
	if s.stopLoop != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	done := make(chan struct{})
	s.stopLoop, s.loopDone = cancel, done
	go s.run(ctx, s.eng.Updates(), done)
}

func (s *Store) run(ctx context.Context, updates <-chan engine.Update, done chan struct{}) {
	defer close(done)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			s.Apply(u)
		case <-ctx.Done():
			return
		}
	}
}

// detachEngine drops the current engine without waiting for its update loop,
// which may be the caller.
func (s *Store) detachEngine() {
	s.engMu.Lock()
	eng, cancel := s.eng, s.stopLoop
	s.eng, s.stopLoop, s.loopDone = nil, nil, nil
	s.engMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if eng != nil {
		if err := eng.Close(); err != nil {
			s.logger.Warn("close engine", zap.Error(err))
		}
	}
}

func (s *Store) engine() engine.Engine {
	s.engMu.Lock()
	defer s.engMu.Unlock()
	return s.eng
}

// Subscribe forwards to the bus. Events carry no state; readers re-read the
// matching snapshot.
func (s *Store) Subscribe(namespace string, bufSize int) (<-chan bus.Event, func()) {
	return s.bus.Subscribe(namespace, bufSize)
}

// AuthState returns the mirrored authorization state.
func (s *Store) AuthState() engine.AuthState {
	return s.auth.Current()
}

// Chats returns the visible chat sequence for the current selector.
func (s *Store) Chats() []engine.Chat {
	return *s.chatSnap.Load()
}

// Messages returns the open chat's message window, newest first.
func (s *Store) Messages() []engine.Message {
	return *s.msgSnap.Load()
}

// Files returns the file status map.
func (s *Store) Files() map[int32]engine.File {
	return *s.fileSnap.Load()
}

// File returns the latest status of one file.
func (s *Store) File(id int32) (engine.File, bool) {
	f, ok := s.Files()[id]
	return f, ok
}

// Folders returns the engine's chat folders.
func (s *Store) Folders() []engine.ChatFolder {
	return *s.folderSnap.Load()
}

// Selector returns the current chat list selection.
func (s *Store) Selector() Selector {
	return *s.selectorVal.Load()
}

// LastError returns the last auth error text, or "".
func (s *Store) LastError() string {
	return *s.lastError.Load()
}

// AgeVerificationBot returns the bot required for age verification, or "".
func (s *Store) AgeVerificationBot() string {
	return *s.ageBot.Load()
}

// UserStatus returns the last known presence of a user.
func (s *Store) UserStatus(userID int64) (engine.UserStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[userID]
	return st, ok
}

// ActiveChat returns the open chat and thread.
func (s *Store) ActiveChat() (chatID, threadID int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.chatID, s.active.threadID, s.isOpen
}

func (s *Store) setLastError(msg string) {
	s.lastError.Store(&msg)
	s.bus.Emit(bus.CacheError, msg)
}

func (s *Store) publishChatsLocked() {
	list := visibleChats(s.chats, s.selector)
	s.chatSnap.Store(&list)
	sel := s.selector
	s.selectorVal.Store(&sel)
	s.bus.Emit(bus.CacheChats, len(list))
}

func (s *Store) publishMessagesLocked() {
	window := make([]engine.Message, len(s.window))
	copy(window, s.window)
	s.msgSnap.Store(&window)
	s.bus.Emit(bus.CacheMessages, s.active.chatID)
}

func (s *Store) publishFilesLocked() {
	files := maps.Clone(s.files)
	s.fileSnap.Store(&files)
}

func (s *Store) publishFoldersLocked() {
	folders := append([]engine.ChatFolder{}, s.folders...)
	s.folderSnap.Store(&folders)
}
