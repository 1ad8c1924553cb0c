package notice

import (
	"time"

	"github.com/lehigh-university-libraries/imagegallery/internal/i18n"
)

type Kind string

const (
	UploadMissing   Kind = "upload_missing"
	SubmitSucceeded Kind = "submit_succeeded"
	SubmitFailed    Kind = "submit_failed"
	UploadFailed    Kind = "upload_failed"
)

type Status string

const (
	StatusInfo    Status = "info"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// DefaultDuration is how long a notice stays on screen
const DefaultDuration = 5 * time.Second

// Notice is a short, auto-dismissing message shown to the user
type Notice struct {
	Kind        Kind          `json:"kind"`
	Status      Status        `json:"status"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"duration"`
}

var statuses = map[Kind]Status{
	UploadMissing:   StatusInfo,
	SubmitSucceeded: StatusSuccess,
	SubmitFailed:    StatusError,
	UploadFailed:    StatusError,
}

// New builds a localized notice of the given kind
func New(lc *i18n.Localizer, kind Kind) *Notice {
	prefix := "notice." + string(kind)
	return &Notice{
		Kind:        kind,
		Status:      statuses[kind],
		Title:       lc.T(prefix+".title", ""),
		Description: lc.T(prefix+".description", ""),
		Duration:    DefaultDuration,
	}
}

// Seconds is used by templates for the dismiss animation
func (n *Notice) Seconds() float64 {
	return n.Duration.Seconds()
}
