package model

// Coordinate is a WGS 84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BBox is a rectangular coordinate window.
type BBox struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LngMin float64 `json:"lng_min"`
	LngMax float64 `json:"lng_max"`
}

// BBoxAround returns the window of +/- delta degrees around c on both axes.
func BBoxAround(c Coordinate, delta float64) BBox {
	return BBox{
		LatMin: c.Lat - delta,
		LatMax: c.Lat + delta,
		LngMin: c.Lng - delta,
		LngMax: c.Lng + delta,
	}
}

// Contains reports whether c lies inside the box, edges included.
func (b BBox) Contains(c Coordinate) bool {
	return c.Lat >= b.LatMin && c.Lat <= b.LatMax &&
		c.Lng >= b.LngMin && c.Lng <= b.LngMax
}

// BioSignalSet is the outcome of classifying a profile biography.
type BioSignalSet struct {
	HasAddress       bool    `json:"has_address"`
	HasPhone         bool    `json:"has_phone"`
	HasHours         bool    `json:"has_hours"`
	HasBusinessEmoji bool    `json:"has_business_emoji"`
	HasURL           bool    `json:"has_url"`
	HasKeyword       bool    `json:"has_keyword"`
	Confidence       float64 `json:"confidence"`
	IsBusiness       bool    `json:"is_business"`
	LocationHint     string  `json:"location_hint,omitempty"`
}

// SignalCount returns how many of the six signals fired.
func (s BioSignalSet) SignalCount() int {
	n := 0
	for _, b := range []bool{s.HasAddress, s.HasPhone, s.HasHours, s.HasBusinessEmoji, s.HasURL, s.HasKeyword} {
		if b {
			n++
		}
	}
	return n
}
