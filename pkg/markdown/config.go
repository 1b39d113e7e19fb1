package markdown

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

type Config struct {
	// Extensions are enabled in order. Each entry is a single-key map from the
	// extension id to its configuration:
	//
	//	extensions:
	//	  - table: {useAlignAttribute: true}
	//	  - sections: {}
	Extensions []ExtensionConfig `json:"extensions"`
	// Highlight enables syntax highlighting of fenced code blocks.
	Highlight *HighlightConfig `json:"highlight,omitempty"`
	XHTML     bool             `json:"xhtml"`
	Unsafe    bool             `json:"unsafe"`
	// HeadingIDs gives every heading an id attribute.
	HeadingIDs bool `json:"headingIds"`
}

type HighlightConfig struct {
	Style       string `json:"style"`
	LineNumbers bool   `json:"lineNumbers"`
}

type ExtensionConfig struct {
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}

func (n *ExtensionConfig) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		n.Type = id
		n.Config = nil
		return nil
	}
	mm := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &mm); err != nil {
		return err
	}
	if len(mm) > 1 {
		return fmt.Errorf("extension config must have a single key, got %d", len(mm))
	}
	for key, val := range mm {
		n.Type = key
		n.Config = val
		return nil
	}
	return fmt.Errorf("missing type in extension config")
}

func (n ExtensionConfig) MarshalJSON() ([]byte, error) {
	config := n.Config
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	return json.Marshal(map[string]json.RawMessage{
		n.Type: config,
	})
}

// DefaultConfig enables every bundled extension with default settings.
func DefaultConfig() Config {
	return Config{
		Extensions: []ExtensionConfig{
			{Type: "table"},
			{Type: "sections"},
			{Type: "spans"},
			{Type: "smallImage"},
			{Type: "blankLink"},
			{Type: "buttons", Config: json.RawMessage(`{"imagesPath": "", "imagesExtension": "png"}`)},
		},
		Highlight: &HighlightConfig{
			Style: "github",
		},
	}
}

// Digest identifies the rendering behavior of a configuration. Equal configs
// have equal digests.
func (c Config) Digest() (uint64, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config: %w", err)
	}
	return xxhash.Sum64(data), nil
}
