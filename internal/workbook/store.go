package workbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidName       = errors.New("invalid workbook name")
	ErrNotFound          = errors.New("workbook not found")
	ErrAlreadyExists     = errors.New("workbook already exists")
	ErrProtectedWorkbook = errors.New("workbook cannot be deleted")
)

// InvalidNameChars may not appear in workbook names.
const InvalidNameChars = "#%&{}\\/<>*?$!'\":@+´'¨`|="

// ChangeResult tells how Change resolved a name.
type ChangeResult int

const (
	Selected ChangeResult = iota + 1
	Created
)

func (r ChangeResult) String() string {
	switch r {
	case Selected:
		return "selected"
	case Created:
		return "created"
	default:
		return "unknown"
	}
}

type currentFile struct {
	Name string `json:"wb_name"`
}

// Store manages the workbook folders under one root directory.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Paths(name string) Paths {
	return NewPaths(s.root, name)
}

// DisplayFile is the path of the fetch display file shared by all workbooks.
func (s *Store) DisplayFile() string {
	return filepath.Join(s.root, DisplayFileName)
}

// ValidateName rejects the default workbook name, blank names and names with reserved characters.
func ValidateName(name string) error {
	switch {
	case name == DefaultName:
		return fmt.Errorf("%w: %s cannot be selected", ErrInvalidName, DefaultName)
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	case strings.ContainsAny(name, InvalidNameChars):
		return fmt.Errorf("%w: name cannot contain any of %s", ErrInvalidName, InvalidNameChars)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	return nil
}

// Init prepares the root directory and returns the current workbook. When the recorded workbook
// no longer exists the default workbook is created if needed and selected instead.
func (s *Store) Init() (string, error) {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("create workbooks dir: %w", err)
	}

	name, err := s.readCurrent()
	if err != nil {
		log.Warn().Err(err).Msg("Could not read current workbook, falling back to default")
		name = ""
	}
	if name != "" && s.Exists(name) {
		log.Debug().Str("workbook", name).Msg("Current workbook")
		return name, nil
	}

	if name != "" {
		log.Warn().Str("workbook", name).Msg("Previously used workbook no longer exists")
	}
	if err := s.ensureDefault(); err != nil {
		return "", err
	}
	if err := s.writeCurrent(DefaultName); err != nil {
		return "", err
	}
	return DefaultName, nil
}

// Current returns the name stored in current_wb.json.
func (s *Store) Current() (string, error) {
	return s.readCurrent()
}

func (s *Store) readCurrent() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, CurrentFileName))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read current workbook: %w", err)
	}
	var cf currentFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return "", fmt.Errorf("decode current workbook: %w", err)
	}
	return cf.Name, nil
}

func (s *Store) writeCurrent(name string) error {
	data, err := json.MarshalIndent(currentFile{Name: name}, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.root, CurrentFileName), data, 0644); err != nil {
		return fmt.Errorf("write current workbook: %w", err)
	}
	return nil
}

// Exists reports whether a workbook folder called name exists.
func (s *Store) Exists(name string) bool {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return false
	}
	info, err := os.Stat(filepath.Join(s.root, name))
	return err == nil && info.IsDir()
}

// List returns the selectable workbooks in name order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list workbooks: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != DefaultName {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Change selects an existing workbook, or creates and selects a new one when create is set.
func (s *Store) Change(name string, create bool) (ChangeResult, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	exists := s.Exists(name)
	switch {
	case !create && !exists:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	case create && exists:
		return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	case create:
		if err := s.create(name); err != nil {
			return 0, err
		}
		if err := s.writeCurrent(name); err != nil {
			return 0, err
		}
		log.Info().Str("workbook", name).Msg("Workbook created and selected")
		return Created, nil
	default:
		if err := s.writeCurrent(name); err != nil {
			return 0, err
		}
		log.Info().Str("workbook", name).Msg("Workbook selected")
		return Selected, nil
	}
}

// Delete removes a workbook folder. When the deleted workbook was current, the default workbook
// becomes current.
func (s *Store) Delete(name string) error {
	switch {
	case name == DefaultName:
		return fmt.Errorf("%w: %s", ErrProtectedWorkbook, DefaultName)
	case strings.HasSuffix(name, ".txt"), strings.HasSuffix(name, ".json"):
		return fmt.Errorf("%w: %s", ErrProtectedWorkbook, name)
	case !s.Exists(name):
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := os.RemoveAll(filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("delete workbook %s: %w", name, err)
	}
	log.Info().Str("workbook", name).Msg("Workbook deleted")

	current, err := s.readCurrent()
	if err != nil || current != name {
		return nil
	}
	if err := s.ensureDefault(); err != nil {
		return err
	}
	return s.writeCurrent(DefaultName)
}

func (s *Store) ensureDefault() error {
	if s.Exists(DefaultName) {
		return nil
	}
	return s.create(DefaultName)
}

// create writes the folder structure, default settings files and a fresh workbook.
func (s *Store) create(name string) error {
	p := s.Paths(name)
	for _, dir := range []string{p.Dir, p.DataDir, p.SettingsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	settings := DefaultSettings()
	if err := settings.Save(p.Settings); err != nil {
		return err
	}
	if err := WriteJSONText(p.QueryText, settings.Query); err != nil {
		return err
	}
	if err := WriteJSONText(p.HeadersText, settings.Headers); err != nil {
		return err
	}

	mapping, err := settings.Mapping()
	if err != nil {
		return err
	}
	if err := Open(p.Workbook).Format(mapping); err != nil {
		return err
	}
	log.Debug().Str("workbook", name).Str("dir", p.Dir).Msg("Created workbook files")
	return nil
}
