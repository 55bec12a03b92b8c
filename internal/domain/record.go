package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// PullRequest is a single pull request with its changed-file list and,
// in the reviewer view, the logins of everyone who commented on it.
type PullRequest struct {
	Number     int          `json:"number"`
	Title      string       `json:"title"`
	CreatedAt  time.Time    `json:"created_at"`
	Comments   int          `json:"comments"`
	URL        string       `json:"url"`
	Author     string       `json:"author"`
	Files      []FileChange `json:"files"`
	Commenters []string     `json:"commenters,omitempty"`
}

// FileChange is one changed file of a pull request.
type FileChange struct {
	Path string `json:"path"`
}

// Record is one flattened row of the aggregated table: one changed file
// of one pull request, optionally attributed to one contributor. The
// pull request number is carried as a string because hierarchical charts
// misclassify purely numeric path segments as continuous values.
type Record struct {
	Module      string    `json:"module"`
	Filename    string    `json:"filename"`
	Number      string    `json:"number"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	URL         string    `json:"url"`
	Comments    int       `json:"comments"`
	Year        float64   `json:"year"`
	Unit        int       `json:"unit"`
	Contributor string    `json:"contributor,omitempty"`
}

// NewRecord builds a validated record for one changed file of pr. An
// absent module is normalized to the OtherModule sentinel.
func NewRecord(pr *PullRequest, filename, module string) (Record, error) {
	if pr == nil {
		return Record{}, errors.New("pull request must not be nil")
	}
	if pr.Number <= 0 {
		return Record{}, fmt.Errorf("pull request number must be positive, got %d", pr.Number)
	}
	if filename == "" {
		return Record{}, errors.New("record filename must not be empty")
	}
	if module == "" {
		module = OtherModule
	}
	return Record{
		Module:   module,
		Filename: filename,
		Number:   strconv.Itoa(pr.Number),
		Title:    pr.Title,
		Date:     pr.CreatedAt,
		URL:      pr.URL,
		Comments: pr.Comments,
		Year:     FractionalYear(pr.CreatedAt),
		Unit:     1,
	}, nil
}

// FractionalYear maps a timestamp to year + (month-1)/12, so that dates
// within a calendar year order by month on a continuous axis.
func FractionalYear(t time.Time) float64 {
	return float64(t.Year()) + float64(int(t.Month())-1)/12
}
