package models

// WorkItem represents an image queued for analysis
type WorkItem struct {
	FileName string
	Num      int
	Total    int
}

// ImageMetadata holds the capture metadata read from an image's EXIF block.
// Fields that are absent or unparseable stay nil.
type ImageMetadata struct {
	DateTime  *string  `json:"date_time"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// AnalysisResult represents the outcome of analyzing one image.
// Either Description is set or Error is set, never both.
type AnalysisResult struct {
	FileName    string        `json:"file_name"`
	Metadata    ImageMetadata `json:"metadata"`
	Description *string       `json:"description"`
	Caption     *string       `json:"caption"`
	Error       *string       `json:"error"`
}

// Failed reports whether the vision call for this image failed.
func (r AnalysisResult) Failed() bool {
	return r.Error != nil
}

// ImageRecord is one entry of the sidecar file
type ImageRecord struct {
	FileName    string        `json:"file_name"`
	ImageURL    string        `json:"image_url"`
	Description *string       `json:"description"`
	Caption     *string       `json:"caption"`
	Metadata    ImageMetadata `json:"metadata"`
	Error       *string       `json:"error"`
}

// ResultSet is the sidecar document shared by the analyze and reel stages.
// GeneratedAt is an ISO-8601 timestamp kept as text so sidecars written
// without a zone offset still load.
type ResultSet struct {
	GeneratedAt string        `json:"generated_at"`
	BaseURL     string        `json:"base_url"`
	Images      []ImageRecord `json:"images"`
}

// PhotoSearchResult represents a catalog hit for a similarity query
type PhotoSearchResult struct {
	FileName    string
	ImageURL    string
	Description string
	Caption     *string
	Similarity  float64
}
