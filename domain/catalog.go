package domain

import (
	_ "embed"
	"fmt"
	"kimp-board/errors"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// CoinMeta is the display metadata of a market.
type CoinMeta struct {
	Name string `yaml:"name" json:"name"`
	Code string `yaml:"code" json:"code"`
}

type catalogEntry struct {
	Market   string `yaml:"market"`
	CoinMeta `yaml:",inline"`
}

type catalogFile struct {
	Coins []catalogEntry `yaml:"coins"`
}

// CoinCatalog is an immutable market id -> CoinMeta lookup.
// Markets keeps the declaration order of the source document.
type CoinCatalog struct {
	coins   map[string]CoinMeta
	markets []string
}

// DefaultCatalog parses the catalog embedded in the binary.
func DefaultCatalog() (CoinCatalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a YAML catalog from disk.
// An empty path falls back to the embedded catalog.
func LoadCatalog(path string) (CoinCatalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return CoinCatalog{}, fmt.Errorf("read coin catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (CoinCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return CoinCatalog{}, fmt.Errorf("parse coin catalog: %w", err)
	}
	if len(file.Coins) == 0 {
		return CoinCatalog{}, errors.ErrEmptyCatalog
	}
	catalog := CoinCatalog{
		coins:   make(map[string]CoinMeta, len(file.Coins)),
		markets: make([]string, 0, len(file.Coins)),
	}
	for _, entry := range file.Coins {
		if entry.Market == "" {
			return CoinCatalog{}, fmt.Errorf("coin catalog entry %q has no market", entry.Name)
		}
		if _, ok := catalog.coins[entry.Market]; ok {
			return CoinCatalog{}, fmt.Errorf("duplicate market %s in coin catalog", entry.Market)
		}
		catalog.coins[entry.Market] = entry.CoinMeta
		catalog.markets = append(catalog.markets, entry.Market)
	}
	return catalog, nil
}

func (c CoinCatalog) Lookup(market string) (CoinMeta, bool) {
	meta, ok := c.coins[market]
	return meta, ok
}

// Markets returns a copy of the market ids in catalog order.
func (c CoinCatalog) Markets() []string {
	return append([]string(nil), c.markets...)
}

func (c CoinCatalog) Len() int { return len(c.markets) }
