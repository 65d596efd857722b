// Package model holds the value types shared by the resolution engine.
package model

import (
	"math"
	"strings"
	"time"
)

// Source is the provenance tag stored with a place.
type Source string

const (
	SourceSearch      Source = "search"
	SourceShare       Source = "share"
	SourceManual      Source = "manual"
	SourceExternalMap Source = "external_map"
)

// PlaceRecord is a known place. ID is empty until the record is persisted.
type PlaceRecord struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Rating      *float64  `json:"rating,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Source      Source    `json:"source,omitempty"`
	Description string    `json:"description,omitempty"`
	AuthorRef   string    `json:"author_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Coordinate returns the record's position.
func (p PlaceRecord) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lng: p.Lng}
}

// TagList splits the comma-separated tag string, dropping blanks.
func (p PlaceRecord) TagList() []string {
	return SplitTags(p.Tags)
}

// SplitTags splits a comma-separated tag string into trimmed, non-empty tags.
func SplitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTags joins tags into the comma-separated storage form, skipping blanks
// and duplicates while keeping first-seen order.
func JoinTags(tags []string) string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return strings.Join(out, ",")
}

// DuplicateMatch pairs an existing record with its distance and name
// similarity to a candidate.
type DuplicateMatch struct {
	Existing       PlaceRecord `json:"existing"`
	DistanceMeters float64     `json:"distance_meters"`
	Similarity     float64     `json:"similarity"`
}

// MatchSummary is the rounded form of a DuplicateMatch handed to callers.
type MatchSummary struct {
	Record            PlaceRecord `json:"record"`
	DistanceMeters    int         `json:"distance_meters"`
	SimilarityPercent int         `json:"similarity_percent"`
}

// Summarize rounds a match for presentation.
func (m DuplicateMatch) Summarize() *MatchSummary {
	pct := int(math.Round(m.Similarity * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return &MatchSummary{
		Record:            m.Existing,
		DistanceMeters:    int(math.Round(m.DistanceMeters)),
		SimilarityPercent: pct,
	}
}

// CandidatePlace is a place suggested by search or share ingestion that has
// not been confirmed. MatchedExisting is set iff IsRegistered.
type CandidatePlace struct {
	PlaceRecord
	Category        string        `json:"category"`
	BusinessStatus  string        `json:"business_status,omitempty"`
	PhotoRef        string        `json:"photo_ref,omitempty"`
	IsRegistered    bool          `json:"is_registered"`
	MatchedExisting *MatchSummary `json:"matched_existing,omitempty"`
}

// Annotate sets the registration flag from a resolved match list. The first
// match is the closest one.
func (c *CandidatePlace) Annotate(matches []DuplicateMatch) {
	if len(matches) == 0 {
		c.IsRegistered = false
		c.MatchedExisting = nil
		return
	}
	c.IsRegistered = true
	c.MatchedExisting = matches[0].Summarize()
}

// SearchQuery is a free-text place search with an optional center bias.
type SearchQuery struct {
	Text         string      `json:"text"`
	Center       *Coordinate `json:"center,omitempty"`
	RadiusMeters float64     `json:"radius_meters,omitempty"`
}

// CreateRequest is the field contract of a record creation write.
type CreateRequest struct {
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	ImageURL    string  `json:"imageUrl"`
	Tags        string  `json:"tags"`
	Description string  `json:"description"`
	AuthorRef   string  `json:"authorRef"`
	Source      Source  `json:"source,omitempty"`
}

// NewCreateRequest builds a creation request from a draft record.
func NewCreateRequest(p PlaceRecord, authorRef string) CreateRequest {
	return CreateRequest{
		Name:        p.Name,
		Location:    p.Location,
		Lat:         p.Lat,
		Lng:         p.Lng,
		ImageURL:    p.ImageURL,
		Tags:        JoinTags(SplitTags(p.Tags)),
		Description: p.Description,
		AuthorRef:   authorRef,
		Source:      p.Source,
	}
}

// Record converts the request into an unpersisted PlaceRecord.
func (r CreateRequest) Record() PlaceRecord {
	return PlaceRecord{
		Name:        r.Name,
		Location:    r.Location,
		Lat:         r.Lat,
		Lng:         r.Lng,
		ImageURL:    r.ImageURL,
		Tags:        r.Tags,
		Description: r.Description,
		AuthorRef:   r.AuthorRef,
		Source:      r.Source,
	}
}
