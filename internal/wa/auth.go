package wa

import (
	"context"
	"time"

	"go.mau.fi/whatsmeow"
	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/engine"
)

const reconnectDelay = 5 * time.Second

type qrOutcome int

const (
	qrPaired qrOutcome = iota
	qrExpired
	qrFailed
)

// login connects a paired device, or runs QR pairing for a new one. Each
// fresh QR code is reported as awaiting-other-device with the code as link.
// Ready is reported once the connection is up.
func (e *Engine) login(ctx context.Context) {
	if e.client.Store.ID != nil {
		e.connectLoop(ctx)
		return
	}
	for ctx.Err() == nil {
		qr, err := e.client.GetQRChannel(ctx)
		if err != nil {
			e.logger.Error("get QR channel", zap.Error(err))
			return
		}
		if err := e.client.Connect(); err != nil {
			e.logger.Error("connect for pairing", zap.Error(err))
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}
		switch e.watchQR(ctx, qr) {
		case qrPaired:
			return
		case qrExpired:
			e.logger.Info("QR pairing expired, restarting")
			e.client.Disconnect()
		case qrFailed:
			e.client.Disconnect()
			return
		}
	}
}

func (e *Engine) watchQR(ctx context.Context, qr <-chan whatsmeow.QRChannelItem) qrOutcome {
	for {
		select {
		case item, ok := <-qr:
			if !ok {
				return qrExpired
			}
			switch item.Event {
			case "code":
				e.emitAuth(engine.AuthState{Kind: engine.AuthWaitOtherDevice, Link: item.Code})
			case "success":
				e.logger.Info("device paired")
				return qrPaired
			case "timeout":
				return qrExpired
			default:
				e.logger.Error("QR pairing failed", zap.String("event", item.Event), zap.Error(item.Error))
				return qrFailed
			}
		case <-ctx.Done():
			return qrFailed
		}
	}
}

// connectLoop retries the initial connection until it succeeds. Later drops
// are handled by whatsmeow's auto-reconnect.
func (e *Engine) connectLoop(ctx context.Context) {
	for {
		err := e.client.Connect()
		if err == nil {
			return
		}
		e.logger.Warn("connect failed, retrying", zap.Error(err), zap.Duration("delay", reconnectDelay))
		if !sleepCtx(ctx, reconnectDelay) {
			return
		}
	}
}

func (e *Engine) logOut(ctx context.Context) error {
	e.emitAuth(engine.AuthState{Kind: engine.AuthLoggingOut})
	if e.client != nil && e.client.Store.ID != nil {
		if err := e.client.Logout(ctx); err != nil {
			e.logger.Warn("remote logout failed", zap.Error(err))
		}
	}
	e.emitAuth(engine.AuthState{Kind: engine.AuthClosed})
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
