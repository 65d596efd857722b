package share

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		url  string
		want State
	}{
		{"https://www.instagram.com/p/C1a2b3c4/", StateDirectPost},
		{"https://instagram.com/reel/Cxyz/?igsh=abc", StateDirectPost},
		{"https://www.instagram.com/tv/B123/", StateDirectPost},
		{"https://www.instagram.com/roastery_tokyo/p/C1a2/", StateDirectPost},
		{"https://www.instagram.com/roastery_tokyo/", StateProfile},
		{"https://m.instagram.com/roastery_tokyo?hl=ja", StateProfile},
		{"https://www.instagram.com/explore/tags/cafe/", StateUnsupported},
		{"https://www.instagram.com/", StateUnsupported},
		{"https://maps.app.goo.gl/AbCdEf123", StateExternalMap},
		{"https://goo.gl/maps/xyz", StateExternalMap},
		{"https://goo.gl/abc", StateUnsupported},
		{"https://www.google.com/maps/place/Roastery/@35.662,139.700,17z", StateExternalMap},
		{"https://www.google.co.jp/maps/place/Roastery", StateExternalMap},
		{"https://maps.google.com/?q=35.66,139.70", StateExternalMap},
		{"https://www.google.com/search?q=cafe", StateUnsupported},
		{"https://tabelog.com/tokyo/A1303/A130301/13000000/", StateExternalMap},
		{"https://s.tabelog.com/tokyo/A1303/", StateExternalMap},
		{"https://twitter.com/someone/status/1", StateUnsupported},
		{"ftp://instagram.com/p/x", StateUnsupported},
		{"not a url", StateUnsupported},
		{"", StateUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyURL(tt.url))
		})
	}
}

func TestQueryFromText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Roastery Café 渋谷 #coffee #tokyo", "Roastery Café 渋谷"},
		{"  朝ごはん @roastery_tokyo", "朝ごはん"},
		{"Bakery Hachi\n新作のクロワッサン", "Bakery Hachi"},
		{"#only #tags", ""},
		{"", ""},
		{"no delimiters here", "no delimiters here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QueryFromText(tt.text), tt.text)
	}
}

func TestDisplayNameFromTitle(t *testing.T) {
	assert.Equal(t, "Roastery Tokyo", DisplayNameFromTitle("Roastery Tokyo (@roastery_tokyo) • Instagram photos and videos"))
	assert.Equal(t, "喫茶トモ", DisplayNameFromTitle("喫茶トモ(@kissa_tomo)"))
	assert.Equal(t, "No Handle", DisplayNameFromTitle("  No Handle  "))
	assert.Empty(t, DisplayNameFromTitle("(@only_handle)"))
}

func TestPlaceNameFromMapTitle(t *testing.T) {
	assert.Equal(t, "Roastery Café", PlaceNameFromMapTitle("Roastery Café - Google マップ"))
	assert.Equal(t, "Bakery Hachi", PlaceNameFromMapTitle("Bakery Hachi - Google Maps"))
	assert.Equal(t, "喫茶トモ (きっさとも)", PlaceNameFromMapTitle("喫茶トモ (きっさとも) - 食べログ"))
	assert.Equal(t, "Plain", PlaceNameFromMapTitle("Plain"))
}

func TestCoordinateFromMapURL(t *testing.T) {
	c, ok := CoordinateFromMapURL("https://www.google.com/maps/place/Roastery/@35.6620,139.7000,17z/data=x")
	assert.True(t, ok)
	assert.InDelta(t, 35.6620, c.Lat, 1e-9)
	assert.InDelta(t, 139.7000, c.Lng, 1e-9)

	c, ok = CoordinateFromMapURL("https://maps.google.com/?q=35.681236,139.767125")
	assert.True(t, ok)
	assert.InDelta(t, 139.767125, c.Lng, 1e-9)

	_, ok = CoordinateFromMapURL("https://maps.app.goo.gl/AbCdEf123")
	assert.False(t, ok)

	_, ok = CoordinateFromMapURL("https://maps.google.com/?q=95.0,139.0")
	assert.False(t, ok)
}
