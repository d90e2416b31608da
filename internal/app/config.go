package app

import (
	"context"
	"fmt"

	"screenerfetch/internal/config"
	"screenerfetch/internal/editor"
	"screenerfetch/internal/notifications"
	"screenerfetch/internal/screener"
	"screenerfetch/internal/sheets"

	"github.com/rs/zerolog/log"
)

// InitializeClients creates the scanner client, the editors and, when enabled, the sheets
// mirror and the notification client.
func InitializeClients(ctx context.Context, cfg *config.AppConfig) (Options, error) {
	log.Debug().Msg("Initializing clients")
	resilience := cfg.Resilience()

	textEditor, err := editor.NewCommand(cfg.Editor.Text)
	if err != nil {
		return Options{}, fmt.Errorf("text editor: %w", err)
	}
	spreadsheet, err := editor.NewCommand(cfg.Editor.Spreadsheet)
	if err != nil {
		return Options{}, fmt.Errorf("spreadsheet opener: %w", err)
	}

	opts := Options{
		Scanner:     screener.NewClient(cfg.Scanner.BaseURL, cfg.ScannerTimeout(), resilience.ScannerRequest),
		TextEditor:  textEditor,
		Spreadsheet: spreadsheet,
	}

	if cfg.Mirror.Enabled {
		sheetsClient, err := sheets.NewClient(ctx, cfg.Mirror.CredentialsFile)
		if err != nil {
			return Options{}, err
		}
		opts.Mirror = sheets.NewMirror(sheetsClient, cfg.Mirror.SpreadsheetID, cfg.Mirror.SheetName, resilience.MirrorWrite)
		log.Info().Str("sheet", cfg.Mirror.SheetName).Msg("Sheets mirror enabled")
	}

	opts.Notifier = InitializeNotificationClient(cfg)

	log.Debug().Msg("Clients initialized successfully")
	return opts, nil
}

// InitializeNotificationClient returns the notification client, or nil when notifications
// are disabled.
func InitializeNotificationClient(cfg *config.AppConfig) Notifier {
	log.Debug().
		Bool("enabled", cfg.Notify.Enabled).
		Str("base_url", cfg.Notify.URL).
		Str("topic", cfg.Notify.Topic).
		Msg("Initializing notification client")

	if !cfg.Notify.Enabled {
		log.Debug().Msg("Notifications disabled")
		return nil
	}
	log.Info().Str("topic", cfg.Notify.Topic).Msg("Notifications enabled")
	return notifications.NewClient(cfg.Notify.URL, cfg.Notify.Topic, true, cfg.Resilience().Notify)
}
