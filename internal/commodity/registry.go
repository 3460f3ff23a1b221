package commodity

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"cot-sentiment/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed commodities.yaml
var defaultRegistry []byte

type entry struct {
	domain.Commodity `yaml:",inline"`
	Start            string `yaml:"start"`
}

type file struct {
	Commodities []entry `yaml:"commodities"`
}

// Registry maps upper-case symbols to commodity definitions.
type Registry struct {
	bySymbol map[string]domain.Commodity
}

// Default returns the embedded registry.
func Default() (*Registry, error) {
	return Parse(defaultRegistry)
}

// Load reads a registry file, or the embedded default when path is empty.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read commodity registry: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode commodity registry: %w", err)
	}
	if len(f.Commodities) == 0 {
		return nil, fmt.Errorf("commodity registry is empty")
	}

	r := &Registry{bySymbol: make(map[string]domain.Commodity, len(f.Commodities))}
	for i, e := range f.Commodities {
		c := e.Commodity
		c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))
		if c.Symbol == "" {
			return nil, fmt.Errorf("commodity %d: symbol is required", i)
		}
		if c.PositioningDataset == "" || c.PriceDataset == "" {
			return nil, fmt.Errorf("commodity %s: positioning and price datasets are required", c.Symbol)
		}
		if _, dup := r.bySymbol[c.Symbol]; dup {
			return nil, fmt.Errorf("commodity %s defined twice", c.Symbol)
		}
		if c.PriceField == "" {
			c.PriceField = domain.DefaultPriceField
		}
		if e.Start != "" {
			start, err := time.Parse("2006-01-02", e.Start)
			if err != nil {
				return nil, fmt.Errorf("commodity %s: invalid start %q: %w", c.Symbol, e.Start, err)
			}
			c.StartDate = &start
		}
		r.bySymbol[c.Symbol] = c
	}
	return r, nil
}

// Get looks a symbol up case-insensitively.
func (r *Registry) Get(symbol string) (domain.Commodity, bool) {
	c, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return c, ok
}

// List returns all commodities ordered by symbol.
func (r *Registry) List() []domain.Commodity {
	out := make([]domain.Commodity, 0, len(r.bySymbol))
	for _, c := range r.bySymbol {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
