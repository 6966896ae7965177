package region

import (
	"fmt"
	"image"
)

// RedactionStyle selects how a redaction region obscures its pixels.
type RedactionStyle int

const (
	StyleBlur RedactionStyle = iota
	StylePixelate
	StyleSolidBlack
	StyleSolidWhite
)

func (s RedactionStyle) String() string {
	switch s {
	case StyleBlur:
		return "blur"
	case StylePixelate:
		return "pixelate"
	case StyleSolidBlack:
		return "solid-black"
	case StyleSolidWhite:
		return "solid-white"
	}
	return fmt.Sprintf("RedactionStyle(%d)", int(s))
}

// ParseRedactionStyle parses the string form produced by String.
func ParseRedactionStyle(s string) (RedactionStyle, error) {
	switch s {
	case "blur":
		return StyleBlur, nil
	case "pixelate":
		return StylePixelate, nil
	case "solid-black":
		return StyleSolidBlack, nil
	case "solid-white":
		return StyleSolidWhite, nil
	}
	return 0, fmt.Errorf("unknown redaction style %q", s)
}

// Redaction is one region to obscure, expressed in the original,
// untransformed image frame. Intensity in [0,1] scales the blur radius or
// pixelation cell size; it is ignored by the solid styles.
type Redaction struct {
	ID        int             `json:"id"`
	Rect      image.Rectangle `json:"rect"`
	Style     RedactionStyle  `json:"style"`
	Intensity float64         `json:"intensity"`
}

// Normalized returns a copy with the intensity clamped to [0,1] and the
// rectangle put in canonical (Min <= Max) form.
func (r Redaction) Normalized() Redaction {
	r.Rect = r.Rect.Canon()
	if r.Intensity < 0 {
		r.Intensity = 0
	}
	if r.Intensity > 1 {
		r.Intensity = 1
	}
	return r
}

// Set owns the redaction regions for one source image. Regions survive
// transform and crop changes; they are re-projected at processing time,
// never rewritten. The zero value is ready to use. Set is not safe for
// concurrent mutation; the owning session serializes access.
type Set struct {
	nextID  int
	regions []Redaction
}

// Add stores a region and returns its assigned ID.
func (s *Set) Add(r Redaction) int {
	s.nextID++
	r = r.Normalized()
	r.ID = s.nextID
	s.regions = append(s.regions, r)
	return r.ID
}

// Remove deletes the region with the given ID, reporting whether it
// existed.
func (s *Set) Remove(id int) bool {
	for i, r := range s.regions {
		if r.ID == id {
			s.regions = append(s.regions[:i], s.regions[i+1:]...)
			return true
		}
	}
	return false
}

// Update replaces the region with the given ID, keeping the ID stable.
func (s *Set) Update(id int, r Redaction) bool {
	for i := range s.regions {
		if s.regions[i].ID == id {
			r = r.Normalized()
			r.ID = id
			s.regions[i] = r
			return true
		}
	}
	return false
}

// Len returns the number of regions.
func (s *Set) Len() int { return len(s.regions) }

// All returns a copy of the regions in insertion order.
func (s *Set) All() []Redaction {
	out := make([]Redaction, len(s.regions))
	copy(out, s.regions)
	return out
}
