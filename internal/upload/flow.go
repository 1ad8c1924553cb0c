package upload

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/imagegallery/internal/i18n"
	"github.com/lehigh-university-libraries/imagegallery/internal/metrics"
	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	"github.com/lehigh-university-libraries/imagegallery/internal/notice"
	"github.com/lehigh-university-libraries/imagegallery/internal/validation"
)

// ErrMissingUpload is returned by Submit when no file has been stored yet
var ErrMissingUpload = errors.New("no uploaded image to register")

type State int

const (
	Idle State = iota
	Uploading
	AwaitingMetadataSubmit
	Submitting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case AwaitingMetadataSubmit:
		return "awaiting_metadata_submit"
	case Submitting:
		return "submitting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Storage stores the selected file and yields its public URL
type Storage interface {
	Upload(ctx context.Context, file models.FileUpload) (string, error)
}

// Creator registers the image metadata
type Creator interface {
	CreateImage(ctx context.Context, input models.ImageInput) (*models.ImageRecord, error)
}

// Invalidator discards cached gallery pages
type Invalidator interface {
	Invalidate()
}

// Outcome describes the result of one transition. State is the state the
// transition reached; Done and Failed are reported here even though the
// flow itself has already returned to Idle.
type Outcome struct {
	State      State
	Notice     *notice.Notice
	Violations validation.Result
	Record     *models.ImageRecord
	URL        string
	Err        error
}

// Flow drives a single add-image form: file selection, storage, metadata
// submission and cleanup. Transitions are serialized.
type Flow struct {
	storage     Storage
	creator     Creator
	invalidator Invalidator

	mu    sync.Mutex
	state State
	url   string
	file  *models.FileUpload
}

// NewFlow creates an idle flow. invalidator may be nil.
func NewFlow(storage Storage, creator Creator, invalidator Invalidator) *Flow {
	return &Flow{
		storage:     storage,
		creator:     creator,
		invalidator: invalidator,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// URL is the stored file's public URL, empty unless a file is awaiting submission
func (f *Flow) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// SelectFile validates and stores a newly selected file. Selecting a file
// while another one awaits submission replaces it.
func (f *Flow) SelectFile(ctx context.Context, file models.FileUpload) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	lc := i18n.FromContext(ctx)
	f.reset()

	draft := models.FormDraft{File: &file}
	if v, failed := validation.ValidateField(draft, validation.FieldImage); failed {
		metrics.RecordUpload("rejected")
		return Outcome{
			State:      Idle,
			Violations: localize(lc, validation.Result{v.Field: v}),
		}
	}

	f.state = Uploading
	url, err := f.storage.Upload(ctx, file)
	if err != nil {
		slog.Error("Failed to store image", "file", file.Name, "size", file.Size, "err", err)
		metrics.RecordUpload("failed")
		f.reset()
		return Outcome{
			State:  Failed,
			Notice: notice.New(lc, notice.UploadFailed),
			Err:    err,
		}
	}

	// only the metadata is needed for submit-time validation
	meta := file
	meta.Data = nil
	f.file = &meta
	f.url = url
	f.state = AwaitingMetadataSubmit
	metrics.RecordUpload("stored")
	slog.Info("Image stored", "file", file.Name, "url", url)

	return Outcome{State: AwaitingMetadataSubmit, URL: url}
}

// Submit registers the stored file with its title and description.
// Without a stored file nothing is sent and the form is cleared. Validation
// failures leave the flow untouched so the fields can be fixed.
func (f *Flow) Submit(ctx context.Context, title, description string) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	lc := i18n.FromContext(ctx)

	if f.url == "" {
		metrics.RecordSubmission("missing_upload")
		f.reset()
		return Outcome{
			State:  Failed,
			Notice: notice.New(lc, notice.UploadMissing),
			Err:    ErrMissingUpload,
		}
	}

	draft := models.FormDraft{File: f.file, Title: title, Description: description}
	if result := validation.Validate(draft); !result.Valid() {
		metrics.RecordSubmission("invalid")
		return Outcome{
			State:      f.state,
			Violations: localize(lc, result),
			URL:        f.url,
		}
	}

	f.state = Submitting
	input := models.ImageInput{URL: f.url, Title: title, Description: description}
	record, err := f.creator.CreateImage(ctx, input)
	if err != nil {
		slog.Error("Failed to register image", "url", input.URL, "err", err)
		return f.finish(Failed, Outcome{Notice: notice.New(lc, notice.SubmitFailed), Err: err})
	}

	if f.invalidator != nil {
		f.invalidator.Invalidate()
		metrics.RecordInvalidation()
	}
	slog.Info("Image registered", "id", record.ID, "url", record.URL)
	return f.finish(Done, Outcome{Notice: notice.New(lc, notice.SubmitSucceeded), Record: record})
}

// Reset discards any stored file and returns to Idle
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

// finish is the shared cleanup of the terminal states
func (f *Flow) finish(terminal State, out Outcome) Outcome {
	f.state = terminal
	metrics.RecordSubmission(terminal.String())
	f.reset()
	out.State = terminal
	return out
}

func (f *Flow) reset() {
	f.state = Idle
	f.url = ""
	f.file = nil
}

func localize(lc *i18n.Localizer, result validation.Result) validation.Result {
	out := make(validation.Result, len(result))
	for field, v := range result {
		v.Message = lc.T(v.MessageID(), v.Message)
		out[field] = v
	}
	return out
}
