package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// Session is the immutable descriptor of one process lifetime, created
// once at assembly and read-only afterwards.
type Session struct {
	ID        string
	StartedAt time.Time
	Version   string
	Env       string
}

// NewSession mints a session descriptor with a fresh identifier.
func NewSession(version, env string) Session {
	return Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Version:   version,
		Env:       env,
	}
}
