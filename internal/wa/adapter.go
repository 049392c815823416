package wa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/logging"
	"github.com/notioff/telesuper/internal/outbox"
	"github.com/notioff/telesuper/internal/store"
)

const updateBuffer = 256

// Options configures a WhatsApp engine.
type Options struct {
	// SessionDB holds the whatsmeow device keys.
	SessionDB string
	// AppDB holds chats, messages, media and the outbox.
	AppDB string
	// FilesDir receives downloaded media.
	FilesDir string
	// DeviceName is shown in the phone's linked devices list.
	DeviceName string
	Logger     *zap.Logger
}

// Engine implements engine.Engine on top of whatsmeow. Chats and users are
// identified by stable numeric ids allocated per JID in the app database.
type Engine struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	db        *store.DB
	sender    *outbox.Sender
	filesDir  string
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// lifeMu guards closed and the updates channel against Close.
	lifeMu  sync.RWMutex
	closed  bool
	updates chan engine.Update
	pending sync.WaitGroup

	mu          sync.Mutex
	announced   map[int64]bool
	downloading map[int32]bool
}

// Factory returns an engine.Factory that opens a fresh engine with opts
// each time it is called.
func Factory(opts Options) engine.Factory {
	return func() (engine.Engine, error) {
		eng, err := New(context.Background(), opts)
		if err != nil {
			return nil, err
		}
		return eng, nil
	}
}

// New opens the session and app databases and starts logging in. The
// returned engine reports its progress as authorization state updates.
func New(ctx context.Context, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DeviceName != "" {
		wastore.SetOSInfo(opts.DeviceName, [3]uint32{0, 1, 0})
	}
	if err := os.MkdirAll(opts.FilesDir, 0o700); err != nil {
		return nil, fmt.Errorf("create files dir: %w", err)
	}

	db, err := store.OpenMigrated(opts.AppDB)
	if err != nil {
		return nil, fmt.Errorf("open app db: %w", err)
	}
	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", opts.SessionDB),
		logging.Whatsmeow(logger, "Database"),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		_ = db.Close()
		return nil, fmt.Errorf("get device store: %w", err)
	}

	e := newEngine(db, opts.FilesDir, logger)
	e.container = container
	e.client = whatsmeow.NewClient(device, logging.Whatsmeow(logger, "Client"))
	e.client.AddEventHandler(e.Handle)
	e.sender = outbox.NewSender(db, e, e, logger.Named("outbox"))
	e.sender.Start(e.ctx)

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		e.login(e.ctx)
	}()
	return e, nil
}

func newEngine(db *store.DB, filesDir string, logger *zap.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		db:          db,
		filesDir:    filesDir,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		updates:     make(chan engine.Update, updateBuffer),
		announced:   make(map[int64]bool),
		downloading: make(map[int32]bool),
	}
}

// Send handles req asynchronously. The returned channel receives exactly
// one response and is then closed.
func (e *Engine) Send(req engine.Request) <-chan engine.Response {
	e.lifeMu.RLock()
	defer e.lifeMu.RUnlock()
	if e.closed {
		return engine.Respond(nil, engine.Errorf(503, "engine closed"))
	}

	ch := make(chan engine.Response, 1)
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		obj, err := e.handle(e.ctx, req)
		if err != nil {
			var engErr *engine.Error
			if !errors.As(err, &engErr) {
				err = engine.Errorf(500, "%s: %v", req.Kind(), err)
			}
		}
		ch <- engine.Response{Object: obj, Err: err}
		close(ch)
	}()
	return ch
}

// Updates returns the push update stream. It is closed by Close.
func (e *Engine) Updates() <-chan engine.Update {
	return e.updates
}

// Close disconnects, waits for running requests and closes the databases.
func (e *Engine) Close() error {
	// Cancel first: emitters blocked on a full channel hold the read lock.
	e.cancel()
	e.lifeMu.Lock()
	if e.closed {
		e.lifeMu.Unlock()
		return nil
	}
	e.closed = true
	e.lifeMu.Unlock()

	if e.sender != nil {
		e.sender.Stop()
	}
	if e.client != nil {
		e.client.Disconnect()
	}
	e.pending.Wait()

	e.lifeMu.Lock()
	close(e.updates)
	e.lifeMu.Unlock()

	var errs []error
	if e.container != nil {
		errs = append(errs, e.container.Close())
	}
	errs = append(errs, e.db.Close())
	return errors.Join(errs...)
}

// emit delivers an update unless the engine is shutting down.
func (e *Engine) emit(u engine.Update) {
	e.lifeMu.RLock()
	defer e.lifeMu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.updates <- u:
	case <-e.ctx.Done():
	}
}

func (e *Engine) emitAuth(state engine.AuthState) {
	e.emit(engine.UpdateAuthorizationState{State: state})
}

// ownJID returns the logged-in user's JID, or "".
func (e *Engine) ownJID() string {
	if e.client == nil || e.client.Store == nil || e.client.Store.ID == nil {
		return ""
	}
	return e.client.Store.ID.ToNonAD().String()
}

func (e *Engine) connected() bool {
	return e.client != nil && e.client.IsConnected()
}

// SendText delivers a text message; the outbox calls it.
func (e *Engine) SendText(ctx context.Context, jid string, text string) (string, error) {
	if !e.connected() {
		return "", errors.New("not connected")
	}
	to, err := types.ParseJID(jid)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}
	resp, err := e.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.ID, nil
}

// OutgoingStored announces outgoing messages the outbox just stored.
func (e *Engine) OutgoingStored(m *store.Message, created bool) {
	if !created {
		return
	}
	if err := e.db.TouchChat(m.ChatJID, chatKind(m.ChatJID), m.Timestamp, false); err != nil {
		e.logger.Warn("touch chat", zap.String("chat", m.ChatJID), zap.Error(err))
		return
	}
	e.announceMessage(m)
}

// resolveLID maps a hidden-identity JID to the phone number JID when known.
func (e *Engine) resolveLID(ctx context.Context, jid types.JID) types.JID {
	if jid.Server != types.HiddenUserServer && jid.Server != types.HostedLIDServer {
		return jid
	}
	if e.client == nil || e.client.Store == nil || e.client.Store.LIDs == nil {
		return jid
	}
	pn, err := e.client.Store.LIDs.GetPNForLID(ctx, jid)
	if err != nil || pn.IsEmpty() {
		return jid
	}
	return pn
}
