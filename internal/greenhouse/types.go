package greenhouse

import (
	"encoding/json"
	"fmt"
	"time"
)

// Attachment types as reported by the Harvest API.
const (
	AttachmentResume      = "resume"
	AttachmentCoverLetter = "cover_letter"
)

// StatusActive is the application status eligible for rating.
const StatusActive = "active"

// Application is one job application row from the listing endpoint. Only
// the fields the pipeline consumes are mapped.
type Application struct {
	ID          int64        `json:"id"`
	CandidateID int64        `json:"candidate_id"`
	Prospect    bool         `json:"prospect"`
	Status      string       `json:"status"`
	RejectedAt  *time.Time   `json:"rejected_at"`
	Attachments []Attachment `json:"attachments"`
}

// Eligible reports whether an application should enter the pipeline:
// a real (non-prospect) active application that has not been rejected.
func (a *Application) Eligible() bool {
	return !a.Prospect && a.RejectedAt == nil && a.Status == StatusActive
}

// Attachment references a remote resume or cover-letter document.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Type     string `json:"type"`
}

// CandidateDetail is the candidate-detail endpoint payload.
type CandidateDetail struct {
	ID           int64         `json:"id"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Applications []Application `json:"applications"`
}

// Name returns the candidate's display name.
func (c *CandidateDetail) Name() string {
	return fmt.Sprintf("%s %s", c.FirstName, c.LastName)
}

// ActiveApplication returns the candidate's active application, or nil.
func (c *CandidateDetail) ActiveApplication() *Application {
	for i := range c.Applications {
		if c.Applications[i].Status == StatusActive {
			return &c.Applications[i]
		}
	}
	return nil
}

// FindAttachment returns the first attachment of the given type on the
// candidate's active application, or nil.
func (c *CandidateDetail) FindAttachment(attachmentType string) *Attachment {
	app := c.ActiveApplication()
	if app == nil {
		return nil
	}
	for i := range app.Attachments {
		if app.Attachments[i].Type == attachmentType {
			return &app.Attachments[i]
		}
	}
	return nil
}

// ParseCandidateDetail decodes a raw candidate-detail payload. Payloads are
// cached raw so cache hits go through the same decode path as fetches.
func ParseCandidateDetail(raw []byte) (*CandidateDetail, error) {
	var detail CandidateDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("decode candidate detail: %w", err)
	}
	return &detail, nil
}

type jobPost struct {
	Content string `json:"content"`
}
