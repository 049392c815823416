package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.telesuper.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".telesuper")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// Paths lays out one profile directory.
type Paths struct {
	Name string
	Root string
}

// For returns the paths of the named profile under BaseDir.
func For(name string) Paths {
	return Paths{Name: name, Root: filepath.Join(BaseDir(), "sessions", name)}
}

// Socket is the daemon's RPC socket.
func (p Paths) Socket() string { return filepath.Join(p.Root, "daemon.sock") }

// Credentials holds the application id and secret.
func (p Paths) Credentials() string { return filepath.Join(p.Root, "credentials.toml") }

// EngineDir holds everything the engine owns; it is removed after logout.
func (p Paths) EngineDir() string { return filepath.Join(p.Root, "engine") }

// SessionDB is the whatsmeow device store.
func (p Paths) SessionDB() string { return filepath.Join(p.EngineDir(), "session.db") }

// AppDB is the chats, messages and outbox database.
func (p Paths) AppDB() string { return filepath.Join(p.EngineDir(), "telesuper.db") }

// FilesDir receives downloaded media.
func (p Paths) FilesDir() string { return filepath.Join(p.EngineDir(), "files") }

func (p Paths) LogDir() string { return filepath.Join(p.Root, "logs") }

// LogPath returns the log file of one binary.
func (p Paths) LogPath(binary string) string {
	return filepath.Join(p.LogDir(), binary+".log")
}

// Ensure creates the profile directory tree with owner-only permissions.
func (p Paths) Ensure() error {
	for _, d := range []string{p.Root, p.LogDir(), p.EngineDir(), p.FilesDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
