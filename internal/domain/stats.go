package domain

// ModuleSummary holds the activity roll-up for a single module.
type ModuleSummary struct {
	Module         string  `json:"module"`
	PullRequests   int     `json:"pull_requests"`
	FileTouches    int     `json:"file_touches"`
	MeanComments   float64 `json:"mean_comments"`
	MedianComments float64 `json:"median_comments"`
}
