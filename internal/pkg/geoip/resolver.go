package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"

	"github.com/oschwald/geoip2-golang"
)

var (
	ErrNotFound  = errors.New("geoip: no location for address")
	ErrInvalidIP = errors.New("geoip: invalid ip address")
)

// Location is the subset of a geolocation record used for routing.
type Location struct {
	Country     string `json:"country"`      // English name, e.g. "United States"
	CountryCode string `json:"country_code"` // ISO 3166-1 alpha-2
	City        string `json:"city,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"` // IANA zone
}

// Resolver defines the interface for GeoIP lookups
type Resolver interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
}

// MaxMindResolver reads a GeoLite2/GeoIP2 City database.
type MaxMindResolver struct {
	reader *geoip2.Reader
}

func NewMaxMindResolver(path string) (*MaxMindResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MaxMindResolver{reader: reader}, nil
}

func (r *MaxMindResolver) Lookup(ctx context.Context, ip string) (*Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, ErrInvalidIP
	}

	record, err := r.reader.City(parsed)
	if err != nil {
		return nil, err
	}
	if record.Country.IsoCode == "" {
		return nil, ErrNotFound
	}

	return &Location{
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		TimeZone:    record.Location.TimeZone,
	}, nil
}

func (r *MaxMindResolver) Close() error {
	return r.reader.Close()
}

// StaticResolver maps CIDR blocks to fixed locations. Used in development and
// tests when no MaxMind database is available.
type StaticResolver struct {
	entries []staticEntry
}

type staticEntry struct {
	network  *net.IPNet
	location Location
}

// NewStaticResolver builds a resolver from CIDR → Location pairs. More specific
// networks win over broader ones.
func NewStaticResolver(table map[string]Location) (*StaticResolver, error) {
	r := &StaticResolver{}
	for cidr, loc := range table {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("geoip: bad network %q: %w", cidr, err)
		}
		r.entries = append(r.entries, staticEntry{network: network, location: loc})
	}
	sort.Slice(r.entries, func(i, j int) bool {
		oi, _ := r.entries[i].network.Mask.Size()
		oj, _ := r.entries[j].network.Mask.Size()
		if oi != oj {
			return oi > oj
		}
		return r.entries[i].network.String() < r.entries[j].network.String()
	})
	return r, nil
}

func (r *StaticResolver) Lookup(ctx context.Context, ip string) (*Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, ErrInvalidIP
	}
	for _, e := range r.entries {
		if e.network.Contains(parsed) {
			loc := e.location
			return &loc, nil
		}
	}
	return nil, ErrNotFound
}
