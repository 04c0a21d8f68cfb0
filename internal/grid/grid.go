package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bin snaps a coordinate pair to its grid cell at the given resolution
// in degrees. Cells are centered on multiples of the resolution and
// ties round half up, so equal inputs always land in the same cell and
// re-binning a bin value is a no-op.
func Bin(lat, lon, resolution float64) (float64, float64, error) {
	if resolution <= 0 {
		return 0, 0, fmt.Errorf("resolution must be positive, got %v", resolution)
	}
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	return snap(lat, resolution), snap(lon, resolution), nil
}

func snap(v, resolution float64) float64 {
	return math.Floor(v/resolution+0.5) * resolution
}

// BBox is a geographic bounding box with inclusive containment.
// Min must be strictly less than max on each axis.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// ParseBBox parses "min_lon,min_lat,max_lon,max_lat".
func ParseBBox(s string) (*BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox value %q is not a number", p)
		}
		vals[i] = v
	}
	b := &BBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b BBox) Validate() error {
	if b.MinLat < -90 || b.MinLat > 90 || b.MaxLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("bbox latitude out of range [-90, 90]")
	}
	if b.MinLon < -180 || b.MinLon > 180 || b.MaxLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("bbox longitude out of range [-180, 180]")
	}
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("bbox min_lat must be less than max_lat")
	}
	if b.MinLon >= b.MaxLon {
		return fmt.Errorf("bbox min_lon must be less than max_lon")
	}
	return nil
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}
