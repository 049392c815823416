package viewmodel

import (
	"context"

	"github.com/notioff/telesuper/internal/cache"
)

const (
	// SensitiveContentOption lifts restrictions on sensitive content.
	SensitiveContentOption = "ignore_sensitive_content_restrictions"
	defaultVerificationBot = "VerifyBot"
)

// Privacy toggles content options and opens the age verification bot.
type Privacy struct {
	store *cache.Store
}

func NewPrivacy(store *cache.Store) *Privacy {
	return &Privacy{store: store}
}

func (v *Privacy) SensitiveContent(ctx context.Context) bool {
	return v.store.GetOption(ctx, SensitiveContentOption)
}

func (v *Privacy) SetSensitiveContent(enabled bool) {
	v.store.SetOption(SensitiveContentOption, enabled)
}

// VerificationBot returns the bot the engine asked for, or the default one.
func (v *Privacy) VerificationBot() string {
	if bot := v.store.AgeVerificationBot(); bot != "" {
		return bot
	}
	return defaultVerificationBot
}

// OpenVerificationBot resolves the verification bot to a chat id.
func (v *Privacy) OpenVerificationBot(ctx context.Context) (int64, bool) {
	return v.store.ResolveUsername(ctx, v.VerificationBot())
}
