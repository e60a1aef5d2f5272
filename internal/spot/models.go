package spot

import "time"

// Spot is a point of interest. SpotSource is empty for native records and
// carries the external feed identifier for imports; DuplicateOf is empty
// unless the spot has been merged into another one.
type Spot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Address     string  `json:"address,omitempty"`
	City        string  `json:"city,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Geohash     string  `json:"geohash,omitempty"`

	ImageURLs []string `json:"image_urls"`
	VideoIDs  []string `json:"video_ids"`

	Access     []string `json:"spot_access"`
	Features   []string `json:"spot_features"`
	Facilities []string `json:"spot_facilities"`
	GoodFor    []string `json:"good_for"`

	CreatedBy     string `json:"created_by,omitempty"`
	CreatedByName string `json:"created_by_name,omitempty"`
	SpotSource    string `json:"spot_source,omitempty"`

	IsPublic bool `json:"is_public"`
	Hidden   bool `json:"hidden"`

	AverageRating    float64 `json:"average_rating"`
	RatingCount      int     `json:"rating_count"`
	WilsonLowerBound float64 `json:"wilson_lower_bound"`
	Ranking          float64 `json:"ranking"`

	DuplicateOf string `json:"duplicate_of,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNative reports whether the spot was authored in this system rather than
// imported from an external sync source.
func (s Spot) IsNative() bool {
	return s.SpotSource == ""
}

// Snapshot renders the editable fields as a document for audit diffing.
func (s Spot) Snapshot() map[string]any {
	var duplicateOf any
	if s.DuplicateOf != "" {
		duplicateOf = s.DuplicateOf
	}
	return map[string]any{
		"name":         s.Name,
		"description":  s.Description,
		"address":      s.Address,
		"city":         s.City,
		"country_code": s.CountryCode,
		"latitude":     s.Latitude,
		"longitude":    s.Longitude,
		"geohash":      s.Geohash,
		"image_urls":   s.ImageURLs,
		"video_ids":    s.VideoIDs,
		"access":       s.Access,
		"features":     s.Features,
		"facilities":   s.Facilities,
		"good_for":     s.GoodFor,
		"is_public":    s.IsPublic,
		"hidden":       s.Hidden,
		"duplicate_of": duplicateOf,
	}
}

// Rating is one user's 1-5 rating of one spot. At most one rating exists per
// (spot, user); resubmission updates in place.
type Rating struct {
	SpotID    string    `json:"spot_id"`
	UserID    string    `json:"user_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingSummary is the cached aggregate recomputed after each rating write.
type RatingSummary struct {
	SpotID           string  `json:"spot_id"`
	AverageRating    float64 `json:"average_rating"`
	RatingCount      int     `json:"rating_count"`
	WilsonLowerBound float64 `json:"wilson_lower_bound"`
}
