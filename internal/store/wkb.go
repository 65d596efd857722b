package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference used for stored points (WGS 84).
const SRID = 4326

// EncodePoint converts a lat/lng pair to EWKB bytes with SRID 4326.
// PostGIS orders coordinates as (lng, lat).
func EncodePoint(lat, lng float64) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(SRID)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode point")
	}
	return data, nil
}

// DecodePoint parses EWKB bytes produced by EncodePoint.
func DecodePoint(data []byte) (lat, lng float64, err error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return 0, 0, eris.Wrap(err, "store: decode point")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, eris.Errorf("store: decode point: unexpected geometry %T", g)
	}
	return p.Y(), p.X(), nil
}
