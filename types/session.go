package types

import "time"

// FileRef identifies one uploaded source clip within a session.
type FileRef struct {
	Name     string  `json:"name" yaml:"name"`
	Duration float64 `json:"duration" yaml:"duration"` // raw source length in seconds
}

// Session is an isolated namespace of uploaded clips, cached descriptions,
// and the current storyboard, identified by a sanitized string key.
type Session struct {
	ID           string            `json:"id" yaml:"id"`
	Files        []FileRef         `json:"files" yaml:"files"`
	Descriptions map[string]string `json:"descriptions" yaml:"descriptions"`
	Storyboard   *Storyboard       `json:"storyboard,omitempty" yaml:"storyboard,omitempty"`
	CreatedAt    time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" yaml:"updated_at"`
}

// NewSession returns an empty session with default settings.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		Files:        []FileRef{},
		Descriptions: map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// FileDuration returns the registered raw duration for a file, or 0 if unknown.
func (s *Session) FileDuration(name string) float64 {
	for _, f := range s.Files {
		if f.Name == name {
			return f.Duration
		}
	}
	return 0
}

// Description returns the cached description for a file. Empty means not yet analyzed.
func (s *Session) Description(name string) string {
	if s.Descriptions == nil {
		return ""
	}
	return s.Descriptions[name]
}
