package models

// SearchResult is one time-coded hit.
type SearchResult struct {
	VideoID      string  `json:"video_id"`
	TimeLabel    string  `json:"time_label"`
	Body         string  `json:"body"`
	StartSeconds float64 `json:"start_seconds"`
	Rank         int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	Language  string          `json:"lang"`
	// DidYouMean is a corrected query offered when nothing matched.
	DidYouMean string `json:"did_you_mean,omitempty"`
}
