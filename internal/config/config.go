package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// FileName is the application config file looked up next to the executable.
const FileName = "config.toml"

type AppConfig struct {
	Workbooks WorkbooksConfig `toml:"workbooks"`
	Scanner   ScannerConfig   `toml:"scanner"`
	Editor    EditorConfig    `toml:"editor"`
	Mirror    MirrorConfig    `toml:"mirror"`
	Notify    NotifyConfig    `toml:"notify"`
}

type WorkbooksConfig struct {
	// Dir holds current_wb.json, the display file and one folder per workbook.
	// A relative path is resolved against the executable directory.
	Dir string `toml:"dir"`
}

type ScannerConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// EditorConfig holds the commands used to open files. Each command must block until the
// user is done with the file.
type EditorConfig struct {
	Text        string `toml:"text"`
	Spreadsheet string `toml:"spreadsheet"`
}

// MirrorConfig enables copying saved rows to a Google Sheets spreadsheet.
type MirrorConfig struct {
	Enabled         bool   `toml:"enabled"`
	CredentialsFile string `toml:"credentials_file"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	SheetName       string `toml:"sheet_name"`
}

type NotifyConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	Topic   string `toml:"topic"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Workbooks: WorkbooksConfig{
			Dir: "workbooks",
		},
		Scanner: ScannerConfig{
			BaseURL:        "https://scanner.tradingview.com",
			TimeoutSeconds: 15,
			MaxRetries:     3,
		},
		Editor: EditorConfig{
			Text:        defaultTextEditor(),
			Spreadsheet: defaultSpreadsheetOpener(),
		},
		Mirror: MirrorConfig{
			CredentialsFile: "credentials.json",
			SheetName:       "sheet1",
		},
		Notify: NotifyConfig{
			URL:   "https://ntfy.sh",
			Topic: "screenerfetch",
		},
	}
}

func defaultTextEditor() string {
	if v := os.Getenv("VISUAL"); v != "" {
		return v
	}
	if v := os.Getenv("EDITOR"); v != "" {
		return v
	}
	switch runtime.GOOS {
	case "windows":
		return "notepad"
	case "darwin":
		return "open -W -t"
	default:
		return "vi"
	}
}

func defaultSpreadsheetOpener() string {
	switch runtime.GOOS {
	case "windows":
		return "cmd /c start /wait \"\""
	case "darwin":
		return "open -W"
	default:
		return "xdg-open"
	}
}

// GetExeDir returns the directory of the running executable.
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath is config.toml next to the executable, or in the working directory when the
// executable path is unknown.
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, FileName)
}

// Load reads path over the defaults. A missing file is not an error. Environment variables
// override file values.
func Load(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("path", path).Msg("No config file found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("SCREENERFETCH_WORKBOOKS_DIR"); v != "" {
		cfg.Workbooks.Dir = v
	}
	if v := os.Getenv("SCREENERFETCH_SCANNER_URL"); v != "" {
		cfg.Scanner.BaseURL = v
	}
	if v := os.Getenv("SCREENERFETCH_EDITOR"); v != "" {
		cfg.Editor.Text = v
	}
	if v := os.Getenv("SCREENERFETCH_SPREADSHEET_OPENER"); v != "" {
		cfg.Editor.Spreadsheet = v
	}
	if v := os.Getenv("SPREADSHEET_ID"); v != "" {
		cfg.Mirror.SpreadsheetID = v
		cfg.Mirror.Enabled = true
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.Mirror.CredentialsFile = v
	}
	if v := os.Getenv("NTFY_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn().Str("value", v).Msg("Invalid NTFY_ENABLED, ignoring")
		} else {
			cfg.Notify.Enabled = enabled
		}
	}
	if v := os.Getenv("NTFY_URL"); v != "" {
		cfg.Notify.URL = v
	}
	if v := os.Getenv("NTFY_TOPIC"); v != "" {
		cfg.Notify.Topic = v
	}
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Workbooks.Dir) == "" {
		return errors.New("workbooks.dir must not be empty")
	}
	if c.Scanner.BaseURL == "" {
		return errors.New("scanner.base_url must not be empty")
	}
	if c.Scanner.TimeoutSeconds <= 0 {
		return fmt.Errorf("scanner.timeout_seconds must be positive, got %d", c.Scanner.TimeoutSeconds)
	}
	if c.Scanner.MaxRetries < 0 {
		return fmt.Errorf("scanner.max_retries must not be negative, got %d", c.Scanner.MaxRetries)
	}
	if c.Mirror.Enabled && c.Mirror.SpreadsheetID == "" {
		return errors.New("mirror.spreadsheet_id is required when the mirror is enabled")
	}
	return nil
}

// WorkbooksDir resolves Workbooks.Dir to an absolute directory.
func (c *AppConfig) WorkbooksDir() string {
	if filepath.IsAbs(c.Workbooks.Dir) {
		return c.Workbooks.Dir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, c.Workbooks.Dir)
}

func (c *AppConfig) ScannerTimeout() time.Duration {
	return time.Duration(c.Scanner.TimeoutSeconds) * time.Second
}

// Save writes cfg to path.
func Save(path string, cfg *AppConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
