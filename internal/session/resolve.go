package session

import "github.com/notioff/telesuper/internal/config"

const DefaultSessionName = "main"

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--session flag)
// 2. default_session from config (or TELESUPER_SESSION)
// 3. "main"
func Resolve(flagOverride string, cfg *config.Config) string {
	if flagOverride != "" {
		return flagOverride
	}
	if cfg != nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
