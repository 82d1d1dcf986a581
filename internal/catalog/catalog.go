// Package catalog holds the read-only list of airdrop offers.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/tgeclaim/engine/internal/rewards"
	"github.com/tgeclaim/engine/internal/store"
	"gopkg.in/yaml.v3"
)

// ErrDuplicateOffer is returned when two offers share an ID.
var ErrDuplicateOffer = errors.New("duplicate offer id")

// Catalog is an immutable, ordered set of offers.
type Catalog struct {
	offers []store.Offer
	index  map[string]int
}

// New builds a catalog from the given offers, preserving their order.
func New(offers []store.Offer) (*Catalog, error) {
	c := &Catalog{
		offers: make([]store.Offer, len(offers)),
		index:  make(map[string]int, len(offers)),
	}

	for i, offer := range offers {
		if offer.ID == "" {
			return nil, fmt.Errorf("offer %d has no id", i)
		}
		if _, exists := c.index[offer.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOffer, offer.ID)
		}
		for _, opt := range offer.StakingOptions {
			if _, err := rewards.Months(opt.Duration); err != nil {
				return nil, fmt.Errorf("offer %s: %w", offer.ID, err)
			}
		}
		c.offers[i] = offer
		c.index[offer.ID] = i
	}

	return c, nil
}

// Offers returns a copy of all offers in catalog order.
func (c *Catalog) Offers() []store.Offer {
	out := make([]store.Offer, len(c.offers))
	copy(out, c.offers)
	return out
}

// Lookup returns the offer with the given ID.
func (c *Catalog) Lookup(id string) (store.Offer, bool) {
	i, ok := c.index[id]
	if !ok {
		return store.Offer{}, false
	}
	return c.offers[i], true
}

// Has reports whether the catalog contains id.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Len returns the number of offers.
func (c *Catalog) Len() int {
	return len(c.offers)
}

// Select returns the claimable offers among ids, in catalog order.
func (c *Catalog) Select(ids []string) []store.Offer {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var out []store.Offer
	for _, offer := range c.offers {
		if wanted[offer.ID] && offer.Claimable {
			out = append(out, offer)
		}
	}
	return out
}

// file is the on-disk layout accepted by LoadFile.
type file struct {
	Offers []store.Offer `yaml:"offers"`
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	for i := range f.Offers {
		fillDisplayNames(&f.Offers[i])
	}
	return New(f.Offers)
}

// fillDisplayNames defaults missing option labels to the duration's name.
func fillDisplayNames(o *store.Offer) {
	for i := range o.StakingOptions {
		if o.StakingOptions[i].DisplayName == "" {
			o.StakingOptions[i].DisplayName = o.StakingOptions[i].Duration.DisplayName()
		}
	}
}
