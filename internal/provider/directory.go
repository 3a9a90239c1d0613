package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stealthnote/internal/domain"
)

// Directory holds curated titles and logos for well-known groups.
type Directory struct {
	groups map[directoryKey]domain.AnonGroup
}

type directoryKey struct {
	provider domain.ProviderID
	id       domain.GroupID
}

type directoryFile struct {
	Groups []domain.AnonGroup `yaml:"groups"`
}

// LoadDirectory reads a YAML directory file. A missing path yields an empty
// directory.
func LoadDirectory(path string) (*Directory, error) {
	if path == "" {
		return &Directory{groups: map[directoryKey]domain.AnonGroup{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read group directory: %w", err)
	}
	return ParseDirectory(data)
}

// ParseDirectory parses YAML of the form:
//
//	groups:
//	  - provider_id: google-oauth
//	    id: acme.com
//	    title: Acme
//	    logo_url: https://example.com/acme.png
func ParseDirectory(data []byte) (*Directory, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse group directory: %w", err)
	}
	d := &Directory{groups: make(map[directoryKey]domain.AnonGroup, len(f.Groups))}
	for _, g := range f.Groups {
		if g.ProviderID == "" || g.ID == "" {
			return nil, fmt.Errorf("group directory entry needs provider_id and id: %+v", g)
		}
		d.groups[directoryKey{g.ProviderID, g.ID}] = g
	}
	return d, nil
}

// Lookup returns the curated entry for a group.
func (d *Directory) Lookup(provider domain.ProviderID, id domain.GroupID) (domain.AnonGroup, bool) {
	if d == nil {
		return domain.AnonGroup{}, false
	}
	g, ok := d.groups[directoryKey{provider, id}]
	return g, ok
}
