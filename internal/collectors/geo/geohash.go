package geo

import (
	"strings"

	"argus/internal/platform/errors"
)

const base32Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode returns the geohash of (lat, lon) with precision characters.
func Encode(lat, lon float64, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	latRange := [2]float64{-90, 90}
	lonRange := [2]float64{-180, 180}

	var sb strings.Builder
	sb.Grow(precision)

	bit, ch := 0, 0
	even := true
	for sb.Len() < precision {
		if even {
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				lonRange[0] = mid
			} else {
				lonRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}
		even = !even

		if bit < 4 {
			bit++
			continue
		}
		sb.WriteByte(base32Alphabet[ch])
		bit, ch = 0, 0
	}
	return sb.String()
}

// Box is the area covered by a geohash cell.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Center returns the middle of the box.
func (b Box) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Decode returns the bounding box of hash.
func Decode(hash string) (Box, error) {
	box := Box{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	if hash == "" {
		return box, errors.Wrap(errors.ErrInvalidInput, "empty geohash")
	}

	even := true
	for _, r := range strings.ToLower(hash) {
		idx := strings.IndexRune(base32Alphabet, r)
		if idx < 0 {
			return box, errors.Wrapf(errors.ErrInvalidInput, "invalid geohash character %q", r)
		}
		for bit := 4; bit >= 0; bit-- {
			set := idx&(1<<bit) != 0
			if even {
				mid := (box.MinLon + box.MaxLon) / 2
				if set {
					box.MinLon = mid
				} else {
					box.MaxLon = mid
				}
			} else {
				mid := (box.MinLat + box.MaxLat) / 2
				if set {
					box.MinLat = mid
				} else {
					box.MaxLat = mid
				}
			}
			even = !even
		}
	}
	return box, nil
}
