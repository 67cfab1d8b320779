package invoice

import "fmt"

const (
	settingTheme         = "theme"
	settingInvoiceFolder = "invoice_folder"
	settingArchiveFolder = "archive_folder"
)

// Settings holds the per-installation preferences: the theme anyone may
// change, and the two administrator-configured storage folder paths.
type Settings struct {
	Theme         string `json:"theme"`
	InvoiceFolder string `json:"invoice_folder"`
	ArchiveFolder string `json:"archive_folder"`
}

// GetSettings reads the stored settings
func (s *Service) GetSettings() (*Settings, error) {
	theme, err := s.db.GetSetting(settingTheme)
	if err != nil {
		return nil, fmt.Errorf("reading theme: %w", err)
	}
	invoiceFolder, err := s.db.GetSetting(settingInvoiceFolder)
	if err != nil {
		return nil, fmt.Errorf("reading invoice folder: %w", err)
	}
	archiveFolder, err := s.db.GetSetting(settingArchiveFolder)
	if err != nil {
		return nil, fmt.Errorf("reading archive folder: %w", err)
	}
	return &Settings{
		Theme:         theme,
		InvoiceFolder: invoiceFolder,
		ArchiveFolder: archiveFolder,
	}, nil
}

// UpdateSettings stores the given settings. Role gating happens in the HTTP
// layer: the folder paths are administrator-only.
func (s *Service) UpdateSettings(settings *Settings) error {
	pairs := map[string]string{
		settingTheme:         settings.Theme,
		settingInvoiceFolder: settings.InvoiceFolder,
		settingArchiveFolder: settings.ArchiveFolder,
	}
	for key, value := range pairs {
		if err := s.db.PutSetting(key, value); err != nil {
			return fmt.Errorf("storing %s: %w", key, err)
		}
	}
	return nil
}
