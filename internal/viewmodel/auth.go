package viewmodel

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/engine"
)

// Auth drives the login screens.
type Auth struct {
	store  *cache.Store
	logger *zap.Logger
}

func NewAuth(store *cache.Store, logger *zap.Logger) *Auth {
	return &Auth{store: store, logger: logger}
}

func (a *Auth) State() engine.AuthState { return a.store.AuthState() }

// LastError is the text of the last failed code or password check.
func (a *Auth) LastError() string { return a.store.LastError() }

// SubmitCredentials parses the application id and stores the credentials.
// A non-numeric id is logged and ignored; it reports whether the
// credentials were accepted.
func (a *Auth) SubmitCredentials(apiID, apiHash string) bool {
	id, err := strconv.ParseInt(strings.TrimSpace(apiID), 10, 32)
	if err != nil {
		a.logger.Warn("invalid application id", zap.String("api_id", apiID), zap.Error(err))
		return false
	}
	if err := a.store.SetCredentials(int32(id), strings.TrimSpace(apiHash)); err != nil {
		a.logger.Error("set credentials", zap.Error(err))
		return false
	}
	return true
}

func (a *Auth) SubmitPhone(phone string) {
	a.store.SubmitPhone(strings.TrimSpace(phone))
}

func (a *Auth) SubmitCode(ctx context.Context, code string) error {
	return a.store.SubmitCode(ctx, strings.TrimSpace(code))
}

func (a *Auth) SubmitPassword(ctx context.Context, password string) error {
	return a.store.SubmitPassword(ctx, password)
}

// Link starts a new login after a full logout. Engines that log in from
// another device show a fresh link once the new engine is up.
func (a *Auth) Link() error {
	if k := a.store.AuthState().Kind; k != engine.AuthClosed && k != engine.AuthWaitCredentials {
		return nil
	}
	if err := a.store.Reconnect(); err != nil {
		a.logger.Error("link device", zap.Error(err))
		return err
	}
	return nil
}
