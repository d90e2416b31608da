package workbook

import "path/filepath"

const (
	// DefaultName is the fallback workbook. It cannot be selected by name or deleted.
	DefaultName     = "_default"
	SheetName       = "sheet1"
	CurrentFileName = "current_wb.json"
	DisplayFileName = "api_data.txt"
)

// Paths lists every file of one workbook folder.
type Paths struct {
	Name        string
	Dir         string
	Workbook    string
	Autocopy    string
	Copy        string
	DataDir     string
	SettingsDir string
	Settings    string
	QueryText   string
	HeadersText string
}

func NewPaths(root, name string) Paths {
	dir := filepath.Join(root, name)
	settingsDir := filepath.Join(dir, "settings")
	return Paths{
		Name:        name,
		Dir:         dir,
		Workbook:    filepath.Join(dir, name+".xlsx"),
		Autocopy:    filepath.Join(dir, name+"-autocopy.xlsx"),
		Copy:        filepath.Join(dir, name+"-copy.xlsx"),
		DataDir:     filepath.Join(dir, "data"),
		SettingsDir: settingsDir,
		Settings:    filepath.Join(settingsDir, "settings.json"),
		QueryText:   filepath.Join(settingsDir, "query.txt"),
		HeadersText: filepath.Join(settingsDir, "headers.txt"),
	}
}
