package parser

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules holds the tunable heuristics of the parser.
type Rules struct {
	DefaultPath         string   `yaml:"default_path"`
	ClientDirectiveExts []string `yaml:"client_directive_exts"`
	ScriptExts          []string `yaml:"script_exts"`
	CodeStartTokens     []string `yaml:"code_start_tokens"`
	PreambleAnchors     []string `yaml:"preamble_anchors"`
	IconLibrary         string   `yaml:"icon_library"`
	KnownIcons          []string `yaml:"known_icons"`
}

// DefaultRules returns the embedded rule set.
func DefaultRules() *Rules {
	var r Rules
	if err := yaml.Unmarshal(defaultRulesYAML, &r); err != nil {
		panic(fmt.Sprintf("parser: embedded rules.yaml is invalid: %v", err))
	}
	return &r
}

// LoadRules reads a YAML rules file over the defaults. An empty path returns
// the defaults.
func LoadRules(path string) (*Rules, error) {
	r := DefaultRules()
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parser rules: %w", err)
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode parser rules %s: %w", path, err)
	}
	return r, nil
}
