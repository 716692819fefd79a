package graph

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Palette is the set of node colors. A label always hashes to the same entry.
var Palette = []color.NRGBA{
	MustHex("#2DB682"),
	MustHex("#0171E3"),
	MustHex("#E07C3A"),
	MustHex("#9B59B6"),
	MustHex("#E74C3C"),
	MustHex("#1ABC9C"),
	MustHex("#F1C40F"),
	MustHex("#3498DB"),
	MustHex("#E91E63"),
	MustHex("#00BCD4"),
}

// Unlabelled nodes use this color.
var DefaultColor = MustHex("#6EA8FE")

const (
	BaseRadius        = 18.0
	RadiusPerProperty = 1.5
	MaxRadius         = 36.0
)

// ColorFor maps a label to its palette color.
func ColorFor(label string) color.NRGBA {
	if label == "" {
		return DefaultColor
	}
	return Palette[xxhash.Sum64String(label)%uint64(len(Palette))]
}

// RadiusFor returns the display radius for a node with n properties.
func RadiusFor(n int) float64 {
	if n < 0 {
		n = 0
	}
	r := BaseRadius + RadiusPerProperty*float64(n)
	if r > MaxRadius {
		return MaxRadius
	}
	return r
}

// ParseHex parses #RGB, #RRGGBB or #RRGGBBAA.
func ParseHex(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	c := color.NRGBA{A: 0xff}
	var err error
	switch len(s) {
	case 3:
		_, err = fmt.Sscanf(s, "%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	case 6:
		_, err = fmt.Sscanf(s, "%2x%2x%2x", &c.R, &c.G, &c.B)
	case 8:
		_, err = fmt.Sscanf(s, "%2x%2x%2x%2x", &c.R, &c.G, &c.B, &c.A)
	default:
		return c, fmt.Errorf("invalid color %q", s)
	}
	if err != nil {
		return c, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}

// MustHex is ParseHex for constants.
func MustHex(s string) color.NRGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ─── Icons ───

// IconKind is the glyph drawn inside a node in full detail mode.
type IconKind int

const (
	IconGeneric IconKind = iota
	IconPerson
	IconOrganization
	IconLocation
	IconDocument
	IconEvent
	IconProduct
	IconTag
)

var iconNames = map[IconKind]string{
	IconGeneric:      "generic",
	IconPerson:       "person",
	IconOrganization: "organization",
	IconLocation:     "location",
	IconDocument:     "document",
	IconEvent:        "event",
	IconProduct:      "product",
	IconTag:          "tag",
}

var iconGlyphs = map[IconKind]string{
	IconGeneric:      "•",
	IconPerson:       "P",
	IconOrganization: "O",
	IconLocation:     "L",
	IconDocument:     "D",
	IconEvent:        "E",
	IconProduct:      "$",
	IconTag:          "#",
}

// labelIcons is matched against the lower-cased primary label.
var labelIcons = map[string]IconKind{
	"person":       IconPerson,
	"people":       IconPerson,
	"user":         IconPerson,
	"actor":        IconPerson,
	"author":       IconPerson,
	"employee":     IconPerson,
	"company":      IconOrganization,
	"organization": IconOrganization,
	"organisation": IconOrganization,
	"team":         IconOrganization,
	"department":   IconOrganization,
	"location":     IconLocation,
	"place":        IconLocation,
	"city":         IconLocation,
	"country":      IconLocation,
	"address":      IconLocation,
	"document":     IconDocument,
	"file":         IconDocument,
	"article":      IconDocument,
	"paper":        IconDocument,
	"note":         IconDocument,
	"event":        IconEvent,
	"meeting":      IconEvent,
	"transaction":  IconEvent,
	"order":        IconEvent,
	"product":      IconProduct,
	"item":         IconProduct,
	"movie":        IconProduct,
	"tag":          IconTag,
	"category":     IconTag,
	"topic":        IconTag,
	"genre":        IconTag,
}

// IconFor maps a primary label to an icon. Unknown labels get IconGeneric.
func IconFor(label string) IconKind {
	if k, ok := labelIcons[strings.ToLower(strings.TrimSpace(label))]; ok {
		return k
	}
	return IconGeneric
}

func (k IconKind) String() string {
	if s, ok := iconNames[k]; ok {
		return s
	}
	return "generic"
}

// Glyph returns the short text drawn for the icon.
func (k IconKind) Glyph() string {
	if g, ok := iconGlyphs[k]; ok {
		return g
	}
	return iconGlyphs[IconGeneric]
}
