package catalogs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"skyshade.ai/internal/sim/augments"
	"skyshade.ai/internal/sim/encoding"
)

const BuiltinSource = "builtin"

type Catalogs struct {
	Augments AugmentCatalog
}

type AugmentCatalog struct {
	Catalog *augments.Catalog
	Digest  string
	Source  string
}

// Load reads every catalog under configDir. A missing augments.json falls back to the
// built-in definitions.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadAugments(filepath.Join(configDir, "augments.json"), &c.Augments); err != nil {
		return nil, err
	}
	return &c, nil
}

// Builtin returns catalogs made only of built-in definitions.
func Builtin() *Catalogs {
	var c Catalogs
	c.Augments = builtinAugments()
	return &c
}

func builtinAugments() AugmentCatalog {
	defs := augments.DefaultDefinitions()
	raw, _ := json.Marshal(defs)
	return AugmentCatalog{
		Catalog: augments.DefaultCatalog(),
		Digest:  encoding.SHA256Hex(raw),
		Source:  BuiltinSource,
	}
}

func loadAugments(path string, out *AugmentCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			*out = builtinAugments()
			return nil
		}
		return err
	}
	var defs []augments.Definition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("augments.json: %w", err)
	}
	cat, err := augments.NewCatalog(defs)
	if err != nil {
		return fmt.Errorf("augments.json: %w", err)
	}
	out.Catalog = cat
	out.Digest = encoding.SHA256Hex(raw)
	out.Source = path
	return nil
}
