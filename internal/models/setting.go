package models

// Setting is a process-wide key/value pair.
type Setting struct {
	Key   string
	Value string
}

// Known setting keys.
const (
	SettingTheme          = "theme"
	SettingLocale         = "locale"
	SettingDownloadFolder = "download_folder"
)

// SettingDefaults holds the documented default of every known key.
// A missing row means "use the default", never an error.
var SettingDefaults = map[string]string{
	SettingTheme:          "light",
	SettingLocale:         "de",
	SettingDownloadFolder: "",
}
