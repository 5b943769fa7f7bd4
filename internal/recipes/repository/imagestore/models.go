package imagestore

// Label is a single detected image label with the detector's confidence score.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// DetectResult is what the collaborator returns for a stored image:
// a time-limited access URL and the detected labels.
type DetectResult struct {
	URL    string  `json:"image_url"` //nolint:tagliatelle
	Labels []Label `json:"labels"`
}
