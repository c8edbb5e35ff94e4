package loader

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the bookkeeping a loader keeps between calls: the tree most
// recently loaded or generated (Input) and the tree most recently saved
// (Output). It lives exactly as long as the loader that owns it.
type Session struct {
	ID     string
	Input  Ref
	Output Ref
}

// NewSession returns an empty session with a fresh identifier.
func NewSession() Session {
	return Session{ID: uuid.NewString()}
}

// OutputID returns the identity of the last saved tree, falling back to
// the last loaded one.
func (s Session) OutputID() int64 {
	if s.Output.ID != 0 {
		return s.Output.ID
	}
	return s.Input.ID
}

// OutputName returns the name of the last saved tree, falling back to the
// last loaded one.
func (s Session) OutputName() string {
	if s.Output.Name != "" {
		return s.Output.Name
	}
	return s.Input.Name
}

// DefaultName is the name given to trees saved without one: the current
// unix time in lowercase hex.
func DefaultName() string {
	return defaultNameAt(time.Now())
}

func defaultNameAt(t time.Time) string {
	return fmt.Sprintf("%x", t.Unix())
}
