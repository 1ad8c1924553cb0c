package models

// ImageRecord is a single gallery entry as returned by the images API
type ImageRecord struct {
	ID          string `json:"id" yaml:"id" parquet:"id"`
	Title       string `json:"title" yaml:"title" parquet:"title"`
	Description string `json:"description" yaml:"description" parquet:"description"`
	URL         string `json:"url" yaml:"url" parquet:"url"`
	Timestamp   int64  `json:"ts" yaml:"ts" parquet:"ts"`
}

// Page is one response of GET /api/images
type Page struct {
	Data  []ImageRecord `json:"data"`
	After *string       `json:"after"`
}

// NextCursor returns the cursor for the following page, or "" at the end of the collection
func (p *Page) NextCursor() string {
	if p == nil || p.After == nil {
		return ""
	}
	return *p.After
}

// ImageInput is the body of POST /api/images
type ImageInput struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FileUpload is a selected image file, either from a form or fetched from a URL
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// FormDraft is the add-image form between user input and submission
type FormDraft struct {
	File        *FileUpload
	Title       string
	Description string
}
