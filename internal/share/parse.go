package share

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/placematch/internal/model"
)

var instagramPostSegments = map[string]bool{"p": true, "reel": true, "reels": true, "tv": true}

var instagramReservedSegments = map[string]bool{
	"explore": true, "stories": true, "accounts": true, "direct": true, "about": true, "legal": true,
}

// ClassifyURL maps a shared URL to its ingestion path.
func ClassifyURL(raw string) State {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return StateUnsupported
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return StateUnsupported
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	segs := pathSegments(u.Path)

	switch {
	case host == "instagram.com" || host == "instagr.am":
		if len(segs) == 0 {
			return StateUnsupported
		}
		if instagramPostSegments[segs[0]] || (len(segs) > 1 && instagramPostSegments[segs[1]]) {
			return StateDirectPost
		}
		if instagramReservedSegments[segs[0]] {
			return StateUnsupported
		}
		return StateProfile

	case host == "maps.app.goo.gl", host == "maps.google.com", host == "maps.google.co.jp":
		return StateExternalMap
	case host == "goo.gl" && len(segs) > 0 && segs[0] == "maps":
		return StateExternalMap
	case isGoogleHost(host) && len(segs) > 0 && segs[0] == "maps":
		return StateExternalMap
	case host == "tabelog.com" || strings.HasSuffix(host, ".tabelog.com"):
		return StateExternalMap
	}
	return StateUnsupported
}

func isGoogleHost(host string) bool {
	return host == "google.com" || strings.HasPrefix(host, "google.")
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

// QueryFromText returns the text before the first '#', '@' or newline,
// trimmed.
func QueryFromText(text string) string {
	if i := strings.IndexAny(text, "#@\n"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// DisplayNameFromTitle returns the part of a profile title before "(@".
func DisplayNameFromTitle(title string) string {
	if i := strings.Index(title, "(@"); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

var mapTitleSuffixes = []string{
	" - Google マップ", " - Google Maps", " - Google 地図", " - 食べログ", " [食べログ]", " | 食べログ",
}

// PlaceNameFromMapTitle strips the site suffix from a map page title.
func PlaceNameFromMapTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, s := range mapTitleSuffixes {
		if i := strings.Index(title, s); i >= 0 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}

var (
	atCoordPattern    = regexp.MustCompile(`@(-?\d{1,3}\.\d+),(-?\d{1,3}\.\d+)`)
	queryCoordPattern = regexp.MustCompile(`^\s*(-?\d{1,3}\.\d+)\s*,\s*(-?\d{1,3}\.\d+)\s*$`)
)

// CoordinateFromMapURL extracts a coordinate embedded in a map URL, from
// either an "@lat,lng" path or a "q"/"ll" query parameter.
func CoordinateFromMapURL(raw string) (model.Coordinate, bool) {
	if m := atCoordPattern.FindStringSubmatch(raw); m != nil {
		return parseCoordinate(m[1], m[2])
	}
	u, err := url.Parse(raw)
	if err != nil {
		return model.Coordinate{}, false
	}
	for _, key := range []string{"q", "ll", "query"} {
		if m := queryCoordPattern.FindStringSubmatch(u.Query().Get(key)); m != nil {
			return parseCoordinate(m[1], m[2])
		}
	}
	return model.Coordinate{}, false
}

func parseCoordinate(latStr, lngStr string) (model.Coordinate, bool) {
	lat, err1 := strconv.ParseFloat(latStr, 64)
	lng, err2 := strconv.ParseFloat(lngStr, 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return model.Coordinate{}, false
	}
	return model.Coordinate{Lat: lat, Lng: lng}, true
}
