package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// storesFile is the on-disk shape of a multi-store run definition.
type storesFile struct {
	Stores []string `yaml:"stores"`
}

// LoadStores reads a YAML file listing store domains, one per entry:
//
//	stores:
//	  - shop-a.myshopify.com
//	  - shop-b.myshopify.com
func LoadStores(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stores file %q: %w", path, err)
	}

	var parsed storesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse stores file %q: %w", path, err)
	}
	if len(parsed.Stores) == 0 {
		return nil, fmt.Errorf("stores file %q lists no stores", path)
	}
	return parsed.Stores, nil
}
