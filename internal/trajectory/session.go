package trajectory

import (
	"fmt"
	"path/filepath"
)

const (
	sessionTemplate  = "training-%06d-%06d"
	sessionExtension = ".txt"
)

// SessionName returns the engine session name for a given epoch and session index
func SessionName(epoch, session int) string {
	return fmt.Sprintf(sessionTemplate, epoch, session)
}

// SessionPath returns the file the engine writes for the session
func SessionPath(dir string, epoch, session int) string {
	return filepath.Join(dir, SessionName(epoch, session)+sessionExtension)
}

// EpochPattern returns a glob matching every session log of one epoch
func EpochPattern(dir string, epoch int) string {
	return filepath.Join(dir, fmt.Sprintf("training-%06d-*", epoch)+sessionExtension)
}

// FileSource reads session logs from the engine's output directory
type FileSource struct {
	Dir string
}

// Match loads the session log for the epoch/session pair
func (s FileSource) Match(epoch, session int) (*Match, error) {
	return LoadMatch(SessionPath(s.Dir, epoch, session))
}
