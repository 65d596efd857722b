// Package policy holds the tunable constants of the resolution engine:
// duplicate tiers, category mapping rules and the biography vocabulary.
// Defaults are compiled in; a YAML file may override any section.
package policy

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Policy is the top-level policy document.
type Policy struct {
	Dedupe     DedupePolicy   `yaml:"dedupe"`
	Categories CategoryPolicy `yaml:"categories"`
	Bio        BioPolicy      `yaml:"bio"`
}

// Tier is one duplicate classification rule: a candidate is a duplicate when
// distance < MaxDistanceMeters AND similarity > MinSimilarity.
type Tier struct {
	MaxDistanceMeters float64 `yaml:"max_distance_meters"`
	MinSimilarity     float64 `yaml:"min_similarity"`
}

// DedupePolicy configures the duplicate resolver.
type DedupePolicy struct {
	BBoxDeltaDegrees float64 `yaml:"bbox_delta_degrees"`
	Tiers            []Tier  `yaml:"tiers"`
}

// Matches reports whether any tier accepts the pair.
func (p DedupePolicy) Matches(distanceMeters, similarity float64) bool {
	for _, t := range p.Tiers {
		if distanceMeters < t.MaxDistanceMeters && similarity > t.MinSimilarity {
			return true
		}
	}
	return false
}

// CategoryRule maps any of the provider's type tags to an internal category.
type CategoryRule struct {
	Category string   `yaml:"category"`
	Types    []string `yaml:"types"`
}

// CategoryPolicy is a priority-ordered rule list; the first matching rule wins.
type CategoryPolicy struct {
	Rules   []CategoryRule `yaml:"rules"`
	Default string         `yaml:"default"`
}

// BioPolicy is the vocabulary of the business biography classifier.
type BioPolicy struct {
	MinSignals     int      `yaml:"min_signals"`
	Keywords       []string `yaml:"keywords"`
	Emojis         []string `yaml:"emojis"`
	AddressMarkers []string `yaml:"address_markers"`
	HoursMarkers   []string `yaml:"hours_markers"`
	Neighborhoods  []string `yaml:"neighborhoods"`
}

// Default returns the compiled-in policy.
func Default() *Policy {
	return &Policy{
		Dedupe: DedupePolicy{
			BBoxDeltaDegrees: 0.001,
			Tiers: []Tier{
				{MaxDistanceMeters: 10, MinSimilarity: 0.70},
				{MaxDistanceMeters: 50, MinSimilarity: 0.80},
				{MaxDistanceMeters: 100, MinSimilarity: 0.95},
			},
		},
		Categories: CategoryPolicy{
			Rules: []CategoryRule{
				{Category: "cafe", Types: []string{"coffee_shop", "cafe", "tea_house"}},
				{Category: "bakery", Types: []string{"bakery"}},
				{Category: "sweets", Types: []string{"dessert_shop", "ice_cream_shop", "confectionery", "dessert_restaurant"}},
				{Category: "fast_food", Types: []string{"fast_food_restaurant", "hamburger_restaurant", "meal_takeaway"}},
				{Category: "bar", Types: []string{"bar", "wine_bar", "pub", "night_club"}},
				{Category: "restaurant", Types: []string{"restaurant", "food", "meal_delivery"}},
				{Category: "shop", Types: []string{"store", "clothing_store", "book_store", "shopping_mall", "gift_shop"}},
				{Category: "beauty", Types: []string{"beauty_salon", "hair_salon", "hair_care", "spa", "nail_salon"}},
				{Category: "sightseeing", Types: []string{"tourist_attraction", "museum", "art_gallery", "park"}},
			},
			Default: "other",
		},
		Bio: BioPolicy{
			MinSignals: 2,
			Keywords: []string{
				"カフェ", "喫茶", "珈琲", "コーヒー", "レストラン", "食堂", "居酒屋", "ベーカリー", "パン屋",
				"美容室", "美容院", "サロン", "ショップ", "雑貨", "予約", "テイクアウト",
				"cafe", "café", "coffee", "restaurant", "bistro", "bakery", "bar", "salon", "shop", "store",
				"boutique", "reservation", "takeout",
			},
			Emojis: []string{
				"☕", "🍰", "🍽", "🍴", "🥐", "🍞", "🍜", "🍣", "🍷", "🍺", "🍸", "💇", "💅", "🛍", "🏪", "📍", "📞", "☎", "⏰", "🕐",
			},
			AddressMarkers: []string{"丁目", "番地"},
			HoursMarkers:   []string{"営業時間", "定休日", "営業中", "open:", "hours"},
			Neighborhoods: []string{
				"渋谷", "新宿", "原宿", "表参道", "代官山", "恵比寿", "中目黒", "六本木", "銀座", "池袋",
				"吉祥寺", "下北沢", "浅草", "上野", "秋葉原", "自由が丘", "三軒茶屋", "清澄白河", "蔵前", "神楽坂",
			},
		},
	}
}

// Load reads a policy YAML file and overlays it on the defaults. Sections left
// empty in the file keep their default values.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "policy: read %s", path)
	}
	return Parse(data)
}

// Parse overlays a YAML policy document on the defaults.
func Parse(data []byte) (*Policy, error) {
	var file Policy
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "policy: parse")
	}

	p := Default()
	if file.Dedupe.BBoxDeltaDegrees > 0 {
		p.Dedupe.BBoxDeltaDegrees = file.Dedupe.BBoxDeltaDegrees
	}
	if len(file.Dedupe.Tiers) > 0 {
		p.Dedupe.Tiers = file.Dedupe.Tiers
	}
	if len(file.Categories.Rules) > 0 {
		p.Categories.Rules = file.Categories.Rules
	}
	if file.Categories.Default != "" {
		p.Categories.Default = file.Categories.Default
	}
	if file.Bio.MinSignals > 0 {
		p.Bio.MinSignals = file.Bio.MinSignals
	}
	overlay(&p.Bio.Keywords, file.Bio.Keywords)
	overlay(&p.Bio.Emojis, file.Bio.Emojis)
	overlay(&p.Bio.AddressMarkers, file.Bio.AddressMarkers)
	overlay(&p.Bio.HoursMarkers, file.Bio.HoursMarkers)
	overlay(&p.Bio.Neighborhoods, file.Bio.Neighborhoods)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func overlay(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

// Validate rejects policies the engine cannot run with.
func (p *Policy) Validate() error {
	if p.Dedupe.BBoxDeltaDegrees <= 0 {
		return eris.New("policy: bbox_delta_degrees must be positive")
	}
	for i, t := range p.Dedupe.Tiers {
		if t.MaxDistanceMeters <= 0 {
			return eris.Errorf("policy: tier %d: max_distance_meters must be positive", i)
		}
		if t.MinSimilarity < 0 || t.MinSimilarity > 1 {
			return eris.Errorf("policy: tier %d: min_similarity must be within [0,1]", i)
		}
	}
	for i, r := range p.Categories.Rules {
		if r.Category == "" || len(r.Types) == 0 {
			return eris.Errorf("policy: category rule %d needs a category and at least one type", i)
		}
	}
	if p.Bio.MinSignals < 1 || p.Bio.MinSignals > 6 {
		return eris.New("policy: bio.min_signals must be between 1 and 6")
	}
	return nil
}
