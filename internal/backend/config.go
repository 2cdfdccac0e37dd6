package backend

import (
	"fmt"
	"time"

	"painel/internal/config"
	"painel/internal/sources/google"
)

// Config holds configuration for backend creation
type Config struct {
	Type       BackendType
	LedgerType LedgerType
	LedgerSeed int64

	// SQLite, used by the sqlite backend and for snapshots under sheets
	SQLiteDBPath string

	// Google Sheets
	Google google.Config

	// Memory backend seed directory
	DataDirectory string

	CacheSize int
	CacheTTL  time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	ledgerType := LedgerType(appConfig.LedgerBackend)
	if !ledgerType.IsValid() {
		return Config{}, fmt.Errorf("invalid ledger type in config: %s", appConfig.LedgerBackend)
	}

	return Config{
		Type:         backendType,
		LedgerType:   ledgerType,
		LedgerSeed:   appConfig.LedgerSeed,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Google: google.Config{
			SpreadsheetID:      appConfig.GoogleSpreadsheetID,
			SuppliersSheet:     appConfig.GoogleSuppliersSheet,
			InvoicesSheet:      appConfig.GoogleInvoicesSheet,
			ExportLogSheet:     appConfig.GoogleExportLogSheet,
			ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
			ServiceAccountFile: appConfig.GoogleServiceAccountFile,
			OAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
			OAuthClientFile:    appConfig.GoogleOAuthClientFile,
			OAuthTokenFile:     appConfig.GoogleOAuthTokenFile,
		},
		DataDirectory: appConfig.DataDir,
		CacheSize:     appConfig.CacheSize,
		CacheTTL:      appConfig.CacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.LedgerType.IsValid() {
		return fmt.Errorf("invalid ledger type: %s", c.LedgerType)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.Google.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sheets backend snapshots")
		}
	case MemoryBackend:
		if c.LedgerType == SQLiteLedger {
			return fmt.Errorf("sqlite ledger is not available with the memory backend")
		}
	}

	return nil
}
