package store

// Status tracks where a candidate is in the rating lifecycle. It is stored
// explicitly rather than inferred from the score so that refresh and
// duplicate queue deliveries stay unambiguous.
type Status string

const (
	StatusUnrated Status = "unrated"
	StatusQueued  Status = "queued"
	StatusRated   Status = "rated"
)

// Candidate is the detail record stored per candidate per job posting.
// IDs come from the tracking system and are opaque to the pipeline.
type Candidate struct {
	ID     int64  `json:"id"`
	JobID  int64  `json:"job_id"`
	Name   string `json:"name"`
	Status Status `json:"status"`

	// Score is meaningful only when Status is StatusRated. The same value
	// is mirrored into the ranking sorted set.
	Score int    `json:"score"`
	Notes string `json:"notes,omitempty"`

	// Profile links extracted by the scoring service, when present.
	GitHub       string `json:"github,omitempty"`
	PersonalSite string `json:"personal_site,omitempty"`
}

// Rated reports whether the candidate has a final score.
func (c *Candidate) Rated() bool {
	return c.Status == StatusRated
}
