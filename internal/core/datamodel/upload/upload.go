package upload

type Result struct {
	URL          string `json:"url"`
	OriginalName string `json:"originalName,omitempty"`
}
