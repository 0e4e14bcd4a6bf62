// Package vendorcode turns the vendor references found on sale lines into a
// vendor id and the receipt date whose lots the line should draw from.
package vendorcode

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// Markers are the suffixes meaning "yesterday's" and "day before yesterday's" stock.
type Markers struct {
	Prev     string
	PrevPrev string
}

// DefaultMarkers returns p / pp.
func DefaultMarkers() Markers {
	return Markers{Prev: "p", PrevPrev: "pp"}
}

func (m Markers) normalized() Markers {
	return Markers{
		Prev:     strings.ToLower(strings.TrimSpace(m.Prev)),
		PrevPrev: strings.ToLower(strings.TrimSpace(m.PrevPrev)),
	}
}

// daysBack maps a marker to its offset from today. Unknown markers report false.
func (m Markers) daysBack(marker string) (int, bool) {
	switch {
	case marker == "":
		return 0, false
	case marker == m.PrevPrev:
		return 2, true
	case marker == m.Prev:
		return 1, true
	}
	return 0, false
}

// Code is a vendor code split into shortcut and batch marker.
type Code struct {
	Shortcut string
	Marker   string
}

// Parse splits raw into shortcut and marker. The longer marker is tried first
// and a suffix is only stripped when something remains in front of it, so a
// code is never reduced to an empty shortcut. With the default markers "pp"
// parses as shortcut "p" with marker "p" (yesterday), and "p" is the bare
// shortcut "p" (today).
func (m Markers) Parse(raw string) Code {
	m = m.normalized()
	code := strings.ToLower(strings.TrimSpace(raw))
	for _, marker := range []string{m.PrevPrev, m.Prev} {
		if marker == "" {
			continue
		}
		if strings.HasSuffix(code, marker) && len(code) > len(marker) {
			return Code{Shortcut: strings.TrimSpace(strings.TrimSuffix(code, marker)), Marker: marker}
		}
	}
	return Code{Shortcut: code}
}

// VendorLookup finds a vendor by shortcut code.
type VendorLookup interface {
	VendorIDByShortcut(ctx context.Context, shortcut string) (int64, error)
}

// Request describes how one line names its vendor.
type Request struct {
	VendorID     int64
	CodeRaw      string
	BatchMarker  string
	ExplicitDate *time.Time
}

// Resolution is the outcome of resolving a Request. A nil TargetDate means
// any receipt date may be used.
type Resolution struct {
	VendorID   int64
	Shortcut   string
	Marker     string
	TargetDate *time.Time
}

// Resolver resolves vendor references against the catalogue.
type Resolver struct {
	lookup  VendorLookup
	markers Markers
	clock   shared.Clock
}

// NewResolver constructs a Resolver.
func NewResolver(lookup VendorLookup, markers Markers, clock shared.Clock) *Resolver {
	if markers.Prev == "" && markers.PrevPrev == "" {
		markers = DefaultMarkers()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Resolver{lookup: lookup, markers: markers.normalized(), clock: clock}
}

// Resolve resolves a bare vendor code such as "ibpp".
func (r *Resolver) Resolve(ctx context.Context, raw string) (Resolution, error) {
	return r.ResolveLine(ctx, Request{CodeRaw: raw})
}

// ResolveLine resolves the vendor and target date of one sale line.
//
// A direct vendor id carries no date constraint unless a batch marker is
// supplied. A shortcut always targets a date: today, or today minus one or
// two days for the markers. An explicit date overrides either.
func (r *Resolver) ResolveLine(ctx context.Context, req Request) (Resolution, error) {
	today := shared.Today(r.clock)
	var res Resolution

	switch {
	case req.VendorID > 0:
		res.VendorID = req.VendorID
		res.Marker = strings.ToLower(strings.TrimSpace(req.BatchMarker))
		if days, ok := r.markers.daysBack(res.Marker); ok {
			target := today.AddDate(0, 0, -days)
			res.TargetDate = &target
		} else {
			res.Marker = ""
		}
	case strings.TrimSpace(req.CodeRaw) != "":
		code := r.markers.Parse(req.CodeRaw)
		if code.Marker == "" {
			if marker := strings.ToLower(strings.TrimSpace(req.BatchMarker)); marker != "" {
				if _, ok := r.markers.daysBack(marker); ok {
					code.Marker = marker
				}
			}
		}
		if r.lookup == nil {
			return Resolution{}, shared.ErrVendorUnresolved.With("no vendor lookup configured")
		}
		id, err := r.lookup.VendorIDByShortcut(ctx, code.Shortcut)
		if err != nil {
			return Resolution{}, err
		}
		days, _ := r.markers.daysBack(code.Marker)
		target := today.AddDate(0, 0, -days)
		res = Resolution{VendorID: id, Shortcut: code.Shortcut, Marker: code.Marker, TargetDate: &target}
	default:
		return Resolution{}, shared.ErrVendorUnresolved.With("no vendor id or code")
	}

	if req.ExplicitDate != nil {
		explicit := shared.DateOf(*req.ExplicitDate)
		res.TargetDate = &explicit
	}
	return res, nil
}

var explicitDatePattern = regexp.MustCompile(`\(\s*(\d{1,2}/\d{1,2}/\d{4})\s*\)\s*$`)

// SplitExplicitDate removes a trailing "(DD/MM/YYYY)" from an item name and
// returns the date. Names without a valid trailing date are returned unchanged.
func SplitExplicitDate(name string) (string, *time.Time) {
	m := explicitDatePattern.FindStringSubmatchIndex(name)
	if m == nil {
		return name, nil
	}
	d, err := time.Parse("2/1/2006", name[m[2]:m[3]])
	if err != nil {
		return name, nil
	}
	return strings.TrimSpace(name[:m[0]]), &d
}
