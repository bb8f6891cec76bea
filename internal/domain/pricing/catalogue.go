package pricing

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var ErrUnknownCategory = errors.New("unknown service category")

var categoryPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,39}$`)

// Service is one bookable trade with its customer-facing rates.
type Service struct {
	Key             string `toml:"key"`
	Label           string `toml:"label"`
	BasePriceCents  int64  `toml:"base_price_cents"`
	HourlyRateCents int64  `toml:"hourly_rate_cents"`
}

// Catalogue maps a category tag to its service definition.
type Catalogue map[string]Service

func DefaultCatalogue() Catalogue {
	return Catalogue{
		"plumbing":         {Key: "plumbing", Label: "Plumbing", BasePriceCents: 8000, HourlyRateCents: 6500},
		"electrical":       {Key: "electrical", Label: "Electrical", BasePriceCents: 9000, HourlyRateCents: 7500},
		"cleaning":         {Key: "cleaning", Label: "House Cleaning", BasePriceCents: 6000, HourlyRateCents: 3000},
		"landscaping":      {Key: "landscaping", Label: "Landscaping", BasePriceCents: 5000, HourlyRateCents: 4000},
		"painting":         {Key: "painting", Label: "Painting", BasePriceCents: 7000, HourlyRateCents: 3500},
		"carpentry":        {Key: "carpentry", Label: "Carpentry", BasePriceCents: 8500, HourlyRateCents: 6000},
		"hvac":             {Key: "hvac", Label: "HVAC", BasePriceCents: 10000, HourlyRateCents: 8500},
		"moving":           {Key: "moving", Label: "Moving", BasePriceCents: 12000, HourlyRateCents: 5000},
		"pest_control":     {Key: "pest_control", Label: "Pest Control", BasePriceCents: 7500, HourlyRateCents: 4000},
		"appliance_repair": {Key: "appliance_repair", Label: "Appliance Repair", BasePriceCents: 6500, HourlyRateCents: 5500},
	}
}

func (c Catalogue) Lookup(category string) (Service, error) {
	svc, ok := c[strings.TrimSpace(category)]
	if !ok {
		return Service{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return svc, nil
}

// Keys returns the category tags sorted alphabetically.
func (c Catalogue) Keys() []string {
	out := make([]string, 0, len(c))
	for key := range c {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func ValidCategoryTag(tag string) bool {
	return categoryPattern.MatchString(tag)
}

type catalogueFile struct {
	Services []Service `toml:"services"`
}

// LoadCatalogueFile reads a TOML catalogue and overlays it on the defaults.
// Empty path returns the defaults unchanged.
func LoadCatalogueFile(path string) (Catalogue, error) {
	out := DefaultCatalogue()
	path = strings.TrimSpace(path)
	if path == "" {
		return out, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue %s: %w", path, err)
	}
	return ParseCatalogue(raw, out)
}

// ParseCatalogue decodes `[[services]]` tables into base.
func ParseCatalogue(raw []byte, base Catalogue) (Catalogue, error) {
	var file catalogueFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	out := make(Catalogue, len(base)+len(file.Services))
	for key, svc := range base {
		out[key] = svc
	}
	for i, svc := range file.Services {
		svc.Key = strings.TrimSpace(svc.Key)
		if !ValidCategoryTag(svc.Key) {
			return nil, fmt.Errorf("services[%d]: invalid key %q", i, svc.Key)
		}
		if svc.BasePriceCents < 0 || svc.HourlyRateCents < 0 {
			return nil, fmt.Errorf("services[%d]: rates must be non-negative", i)
		}
		if strings.TrimSpace(svc.Label) == "" {
			svc.Label = svc.Key
		}
		out[svc.Key] = svc
	}
	return out, nil
}
