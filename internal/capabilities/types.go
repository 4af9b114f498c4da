package capabilities

// ModelCapabilities describes one model the backend can serve.
type ModelCapabilities struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	MaxTokens   int    `yaml:"max_tokens"`

	// LocalizedLanguages are the language codes the model answers in
	// natively. A user message outside this set goes through the
	// translation path.
	LocalizedLanguages []string `yaml:"localized_languages"`
}

// ProviderCapabilities is the root of one provider's YAML file.
type ProviderCapabilities struct {
	Provider string              `yaml:"provider"`
	Models   []ModelCapabilities `yaml:"models"`
}

// SupportsLanguage reports whether the model answers natively in the
// given language code.
func (m *ModelCapabilities) SupportsLanguage(code string) bool {
	for _, l := range m.LocalizedLanguages {
		if l == code {
			return true
		}
	}
	return false
}
