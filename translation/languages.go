package translation

// Language describes a language the engine accepts and produces.
type Language struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
}

var supportedLanguages = []Language{
	{Code: "en", DisplayName: "English"},
	{Code: "zh", DisplayName: "中文"},
	{Code: "es", DisplayName: "Español"},
	{Code: "fr", DisplayName: "Français"},
	{Code: "de", DisplayName: "Deutsch"},
	{Code: "ja", DisplayName: "日本語"},
	{Code: "ko", DisplayName: "한국어"},
	{Code: "ru", DisplayName: "Русский"},
	{Code: "ar", DisplayName: "العربية"},
	{Code: "pt", DisplayName: "Português"},
	{Code: "it", DisplayName: "Italiano"},
	{Code: "hi", DisplayName: "हिन्दी"},
}

// SupportedLanguages returns the language registry as a copy.
func SupportedLanguages() []Language {
	return append([]Language(nil), supportedLanguages...)
}

// IsSupported reports whether code is in the registry. "auto" is accepted
// as a source language and resolved by recognition.
func IsSupported(code string) bool {
	if code == "auto" {
		return true
	}
	for _, lang := range supportedLanguages {
		if lang.Code == code {
			return true
		}
	}
	return false
}
