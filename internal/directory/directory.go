package directory

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
)

//go:embed directory.yaml
var defaultDirectory []byte

// UserEntry is one row of the user directory.
type UserEntry struct {
	Email  string            `yaml:"email"`
	Name   string            `yaml:"name"`
	Role   string            `yaml:"role"`
	Stores domain.StoreScope `yaml:"stores"`
}

type zonesFile struct {
	Default domain.Zone `yaml:"default"`
	East    []string    `yaml:"east"`
	West    []string    `yaml:"west"`
}

type file struct {
	Zones         zonesFile            `yaml:"zones"`
	Technicians   []domain.Technician  `yaml:"technicians"`
	Vendors       []domain.Vendor      `yaml:"vendors"`
	VendorEditors []string             `yaml:"vendorEditors"`
	NotifyRouting domain.NotifyRouting `yaml:"notifyRouting"`
	Stores        []domain.Store       `yaml:"stores"`
	Users         []UserEntry          `yaml:"users"`
}

// Directory is the read-only reference data: stores, zones, rosters, users and routing.
type Directory struct {
	zones         domain.ZoneTable
	technicians   []domain.Technician
	vendors       []domain.Vendor
	vendorEditors []string
	routing       domain.NotifyRouting
	stores        []domain.Store
	storeIndex    map[string]domain.Store
	users         map[string]domain.Actor
}

// Load reads the directory from path, or the embedded default when path is empty.
func Load(path string) (*Directory, error) {
	data := defaultDirectory
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", path, err)
		}
		data = content
	}
	return Parse(data)
}

// Parse builds a directory from YAML.
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}

	zones := domain.ZoneTable{Pinned: map[string]domain.Zone{}, Default: f.Zones.Default}
	if zones.Default == "" {
		zones.Default = domain.ZoneWest
	}
	for _, code := range f.Zones.East {
		zones.Pinned[code] = domain.ZoneEast
	}
	for _, code := range f.Zones.West {
		if _, dup := zones.Pinned[code]; dup {
			return nil, fmt.Errorf("store %s pinned to more than one zone", code)
		}
		zones.Pinned[code] = domain.ZoneWest
	}

	for _, tech := range f.Technicians {
		if tech.Zone != domain.ZoneEast && tech.Zone != domain.ZoneWest {
			return nil, fmt.Errorf("technician %s has unknown zone %q", tech.Email, tech.Zone)
		}
	}

	d := &Directory{
		zones:         zones,
		technicians:   f.Technicians,
		vendors:       f.Vendors,
		vendorEditors: f.VendorEditors,
		routing:       f.NotifyRouting,
		stores:        f.Stores,
		storeIndex:    make(map[string]domain.Store, len(f.Stores)),
		users:         make(map[string]domain.Actor, len(f.Users)),
	}
	if d.routing == nil {
		d.routing = domain.NotifyRouting{}
	}
	for _, store := range f.Stores {
		d.storeIndex[store.Code] = store
	}
	for _, entry := range f.Users {
		email := strings.ToLower(strings.TrimSpace(entry.Email))
		if email == "" {
			continue
		}
		d.users[email] = domain.Actor{
			Email:  email,
			Name:   entry.Name,
			Role:   domain.ParseRole(entry.Role),
			Stores: entry.Stores,
		}
	}
	return d, nil
}

// Zones returns the store-to-zone table.
func (d *Directory) Zones() domain.ZoneTable { return d.zones }

// Technicians returns the technician roster.
func (d *Directory) Technicians() []domain.Technician {
	return append([]domain.Technician(nil), d.technicians...)
}

// SeedVendors returns the vendors listed in the directory file.
func (d *Directory) SeedVendors() []domain.Vendor {
	return append([]domain.Vendor(nil), d.vendors...)
}

// VendorEditors returns emails allowed to manage the vendor list.
func (d *Directory) VendorEditors() []string {
	return append([]string(nil), d.vendorEditors...)
}

// NotifyRouting returns the category routing table.
func (d *Directory) NotifyRouting() domain.NotifyRouting { return d.routing }

// Stores returns every store in directory order.
func (d *Directory) Stores() []domain.Store {
	return append([]domain.Store(nil), d.stores...)
}

// Store looks up a store by code.
func (d *Directory) Store(code string) (domain.Store, bool) {
	store, ok := d.storeIndex[code]
	return store, ok
}

// StoresFor returns the stores visible within scope.
func (d *Directory) StoresFor(scope domain.StoreScope) []domain.Store {
	out := make([]domain.Store, 0, len(d.stores))
	for _, store := range d.stores {
		if scope.Contains(store.Code) {
			out = append(out, store)
		}
	}
	return out
}

// Actor resolves a user by email.
func (d *Directory) Actor(email string) (domain.Actor, bool) {
	actor, ok := d.users[strings.ToLower(strings.TrimSpace(email))]
	return actor, ok
}
