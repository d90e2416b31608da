package app

import (
	"fmt"

	"screenerfetch/internal/columns"
	"screenerfetch/internal/workbook"
)

// Session is the configuration every command works with: the selected workbook, its settings
// and the column mapping built from them. A session is never changed in place; updates build
// a new one and replace it only when building succeeded.
type Session struct {
	paths    workbook.Paths
	settings *workbook.Settings
	mapping  *columns.Mapping
}

// NewSession builds the session of one workbook from its settings.
func NewSession(paths workbook.Paths, settings *workbook.Settings) (*Session, error) {
	mapping, err := settings.Mapping()
	if err != nil {
		return nil, fmt.Errorf("workbook %s: %w", paths.Name, err)
	}
	return &Session{paths: paths, settings: settings, mapping: mapping}, nil
}

// LoadSession reads the settings of the named workbook and builds its session.
func LoadSession(store *workbook.Store, name string) (*Session, error) {
	paths := store.Paths(name)
	settings, err := workbook.LoadSettings(paths.Settings)
	if err != nil {
		return nil, err
	}
	return NewSession(paths, settings)
}

func (s *Session) Name() string {
	return s.paths.Name
}

func (s *Session) Paths() workbook.Paths {
	return s.paths
}

// Settings returns a copy of the settings. Changing it does not change the session.
func (s *Session) Settings() *workbook.Settings {
	cp := *s.settings
	cp.Headers = make(columns.Overrides, len(s.settings.Headers))
	for k, v := range s.settings.Headers {
		cp.Headers[k] = v
	}
	cp.Query = make(map[string]any, len(s.settings.Query))
	for k, v := range s.settings.Query {
		cp.Query[k] = v
	}
	return &cp
}

func (s *Session) Mapping() *columns.Mapping {
	return s.mapping
}

func (s *Session) Workbook() *workbook.Workbook {
	return workbook.Open(s.paths.Workbook)
}
