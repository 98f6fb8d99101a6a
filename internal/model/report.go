package model

// AnalysisRequest is the immutable input of one analysis run.
// Refresh skips cached reports; the fresh result still refills the cache.
type AnalysisRequest struct {
	URL       string `json:"url"`
	Locale    string `json:"locale"`
	MaxClaims int    `json:"maxClaims"`
	Refresh   bool   `json:"refresh"`
}

const (
	DefaultLocale    = "en"
	DefaultMaxClaims = 8
)

// WithDefaults fills in locale and claim count when the caller left them empty
func (r AnalysisRequest) WithDefaults() AnalysisRequest {
	if r.Locale == "" {
		r.Locale = DefaultLocale
	}
	if r.MaxClaims <= 0 {
		r.MaxClaims = DefaultMaxClaims
	}
	return r
}

// Video holds the metadata shown alongside a report
type Video struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Thumbnail   string `json:"thumbnail"`
	DurationSec int    `json:"durationSec"`
}

// Consensus is the aggregate verdict over all verified claims
type Consensus struct {
	Rating  Rating `json:"rating"`
	Summary string `json:"summary"`
}

// Meta records how a report was produced
type Meta struct {
	TookMs int64  `json:"tookMs"`
	Model  string `json:"model"`  // Model that served claim extraction
	Cached bool   `json:"cached"` // Served from cache or store instead of a fresh run
}

// Report is the complete result of one analysis
type Report struct {
	ReportID     string          `json:"reportId,omitempty"` // Set once persisted
	Video        Video           `json:"video"`
	Consensus    Consensus       `json:"consensus"`
	Claims       []VerifiedClaim `json:"claims"`
	Meta         Meta            `json:"meta"`
	VideoSummary string          `json:"videoSummary"`
}

// DefaultConsensus is the conservative verdict used when synthesis fails
func DefaultConsensus() Consensus {
	return Consensus{
		Rating:  DefaultRating,
		Summary: "Unable to determine consensus due to an error.",
	}
}
