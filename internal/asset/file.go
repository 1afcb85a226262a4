package asset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type registryFile struct {
	Assets    []Asset             `yaml:"assets"`
	Discovery map[string][]uint64 `yaml:"discovery"`
}

// LoadFile reads a YAML registry:
//
//	assets:
//	  - {symbol: USDC, id: 10458941, decimals: 6}
//	discovery:
//	  USDC: [10458941, 37074699]
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML registry document.
func Parse(data []byte) (*Registry, error) {
	var parsed registryFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse asset registry: %w", err)
	}
	r, err := NewRegistry(parsed.Assets...)
	if err != nil {
		return nil, err
	}
	for symbol, ids := range parsed.Discovery {
		r.candidates[strings.ToUpper(strings.TrimSpace(symbol))] = append([]uint64(nil), ids...)
	}
	return r, nil
}
