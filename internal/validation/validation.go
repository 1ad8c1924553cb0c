package validation

import (
	"slices"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
)

// Field names as they appear in the add-image form
type Field string

const (
	FieldImage       Field = "image"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// Fields lists the form fields in display order
var Fields = []Field{FieldImage, FieldTitle, FieldDescription}

type RuleName string

const (
	RuleRequired          RuleName = "required"
	RuleTooShort          RuleName = "too_short"
	RuleTooLong           RuleName = "too_long"
	RuleTooLarge          RuleName = "too_large"
	RuleUnsupportedFormat RuleName = "unsupported_format"
)

const (
	TitleMinLength       = 2
	TitleMaxLength       = 20
	DescriptionMaxLength = 65

	// MaxFileSize is exclusive: a file of exactly this size is rejected
	MaxFileSize = 1 << 20
)

// AcceptedFormats are the MIME types an image may have
var AcceptedFormats = []string{"image/gif", "image/png", "image/jpeg"}

// Rule is one predicate in a field's rule list
type Rule struct {
	Name    RuleName
	Message string
	Fails   func(draft models.FormDraft) bool
}

// Violation is the first failing rule of a field
type Violation struct {
	Field   Field    `json:"field"`
	Rule    RuleName `json:"rule"`
	Message string   `json:"message"`
}

// MessageID identifies the violation for localization
func (v Violation) MessageID() string {
	return "validation." + string(v.Field) + "." + string(v.Rule)
}

// Result maps each failing field to its violation
type Result map[Field]Violation

func (r Result) Valid() bool {
	return len(r) == 0
}

// Rules is the declarative rule table; order within a field matters
var Rules = map[Field][]Rule{
	FieldImage: {
		{Name: RuleRequired, Message: "Add an image", Fails: func(d models.FormDraft) bool {
			return d.File == nil
		}},
		{Name: RuleTooLarge, Message: "The file must be smaller than 1MB", Fails: func(d models.FormDraft) bool {
			return d.File.Size >= MaxFileSize
		}},
		{Name: RuleUnsupportedFormat, Message: "Only PNG, JPEG and GIF files are accepted", Fails: func(d models.FormDraft) bool {
			return d.File.ContentType == "" || !slices.Contains(AcceptedFormats, d.File.ContentType)
		}},
	},
	FieldTitle: {
		{Name: RuleRequired, Message: "Add a title", Fails: func(d models.FormDraft) bool {
			return d.Title == ""
		}},
		{Name: RuleTooShort, Message: "Minimum length", Fails: func(d models.FormDraft) bool {
			return utf8.RuneCountInString(d.Title) < TitleMinLength
		}},
		{Name: RuleTooLong, Message: "Maximum length", Fails: func(d models.FormDraft) bool {
			return utf8.RuneCountInString(d.Title) > TitleMaxLength
		}},
	},
	FieldDescription: {
		{Name: RuleRequired, Message: "Add a description", Fails: func(d models.FormDraft) bool {
			return d.Description == ""
		}},
		{Name: RuleTooLong, Message: "Maximum length", Fails: func(d models.FormDraft) bool {
			return utf8.RuneCountInString(d.Description) > DescriptionMaxLength
		}},
	},
}

// Validate runs every field's rules and keeps the first failure per field
func Validate(draft models.FormDraft) Result {
	result := Result{}
	for _, field := range Fields {
		if v, failed := ValidateField(draft, field); failed {
			result[field] = v
		}
	}
	return result
}

// ValidateField runs the rules of a single field, stopping at the first failure
func ValidateField(draft models.FormDraft, field Field) (Violation, bool) {
	for _, rule := range Rules[field] {
		if rule.Fails(draft) {
			return Violation{Field: field, Rule: rule.Name, Message: rule.Message}, true
		}
	}
	return Violation{}, false
}
