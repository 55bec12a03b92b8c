package usecase

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/pr-module-map/internal/domain"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchPullRequests(ctx context.Context, state string, limit int) ([]*domain.PullRequest, error) {
	args := m.Called(ctx, state, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PullRequest), args.Error(1)
}

func (m *mockFetcher) FetchCommenters(ctx context.Context, number int) ([]string, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestAggregator(fetcher *mockFetcher) *Aggregator {
	return NewAggregator(fetcher, domain.DefaultModuleRules(), log.New(io.Discard, "", 0))
}

func samplePR(number int, files ...string) *domain.PullRequest {
	changes := make([]domain.FileChange, 0, len(files))
	for _, f := range files {
		changes = append(changes, domain.FileChange{Path: f})
	}
	return &domain.PullRequest{
		Number:    number,
		Title:     "sample",
		CreatedAt: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Comments:  2,
		Author:    "alice",
		Files:     changes,
	}
}

func TestAggregator_FileRecords(t *testing.T) {
	testCases := []struct {
		name              string
		pulls             []*domain.PullRequest
		fetchErr          error
		expectedFilenames []string
		expectedModules   []string
		expectError       bool
	}{
		{
			name: "happy path - markers excluded, modules resolved, sentinel applied",
			pulls: []*domain.PullRequest{
				samplePR(1, "plotly/figure.py", "plotly/tests/test_figure.py", "plotly/__init__.py", "setup.py"),
			},
			expectedFilenames: []string{"plotly/figure.py", "plotly/tests/test_figure.py", "setup.py"},
			expectedModules:   []string{"plotly", "plotly", domain.OtherModule},
		},
		{
			name: "pull request with only marker files contributes no rows",
			pulls: []*domain.PullRequest{
				samplePR(2, "__init__.py", "plotly/__init__.py"),
			},
			expectedFilenames: []string{},
			expectedModules:   []string{},
		},
		{
			name: "pull request with no files contributes no rows",
			pulls: []*domain.PullRequest{
				samplePR(3),
				samplePR(4, "doc/python/bar.md"),
			},
			expectedFilenames: []string{"doc/python/bar.md"},
			expectedModules:   []string{domain.ExamplesModule},
		},
		{
			name:        "error case - fetch fails",
			fetchErr:    errors.New("github api error"),
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			if tc.fetchErr != nil {
				fetcher.On("FetchPullRequests", mock.Anything, "open", 100).Return(nil, tc.fetchErr)
			} else {
				fetcher.On("FetchPullRequests", mock.Anything, "open", 100).Return(tc.pulls, nil)
			}
			aggregator := newTestAggregator(fetcher)

			records, err := aggregator.FileRecords(context.Background(), "open", 100)

			if tc.expectError {
				assert.Error(t, err)
				assert.Nil(t, records)
			} else {
				require.NoError(t, err)
				filenames := make([]string, 0, len(records))
				modules := make([]string, 0, len(records))
				for _, rec := range records {
					filenames = append(filenames, rec.Filename)
					modules = append(modules, rec.Module)
					assert.Equal(t, 1, rec.Unit)
					assert.NotEmpty(t, rec.Number)
				}
				assert.Equal(t, tc.expectedFilenames, filenames)
				assert.Equal(t, tc.expectedModules, modules)
			}
			fetcher.AssertExpectations(t)
		})
	}
}

func TestAggregator_FileRecords_PassesCapThrough(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchPullRequests", mock.Anything, "all", 1500).Return([]*domain.PullRequest{}, nil)
	aggregator := newTestAggregator(fetcher)

	records, err := aggregator.FileRecords(context.Background(), "all", 1500)

	require.NoError(t, err)
	assert.Empty(t, records)
	fetcher.AssertExpectations(t)
}

func TestAggregator_ReviewerRecords(t *testing.T) {
	t.Run("cross-product of retained files and human contributors", func(t *testing.T) {
		pr := samplePR(7, "plotly/figure.py", "plotly/io/image.py", "plotly/__init__.py")
		fetcher := new(mockFetcher)
		fetcher.On("FetchPullRequests", mock.Anything, "all", 100).Return([]*domain.PullRequest{pr}, nil)
		fetcher.On("FetchCommenters", mock.Anything, 7).Return([]string{"bob", "codecov[bot]", "carol", "alice"}, nil)
		aggregator := newTestAggregator(fetcher)

		records, err := aggregator.ReviewerRecords(context.Background(), 100, []string{"codecov[bot]", "dependabot[bot]"})

		require.NoError(t, err)
		// 2 retained files x 3 contributors (author + 2 commenters, bot
		// excluded, author deduplicated) = 6 rows.
		assert.Len(t, records, 6)
		perContributor := make(map[string]int)
		for _, rec := range records {
			perContributor[rec.Contributor]++
			assert.NotEqual(t, "plotly/__init__.py", rec.Filename)
		}
		assert.Equal(t, map[string]int{"alice": 2, "bob": 2, "carol": 2}, perContributor)
		fetcher.AssertExpectations(t)
	})

	t.Run("commenter fetch failure aborts the run", func(t *testing.T) {
		pr := samplePR(8, "plotly/figure.py")
		fetcher := new(mockFetcher)
		fetcher.On("FetchPullRequests", mock.Anything, "all", 100).Return([]*domain.PullRequest{pr}, nil)
		fetcher.On("FetchCommenters", mock.Anything, 8).Return(nil, errors.New("github api error"))
		aggregator := newTestAggregator(fetcher)

		records, err := aggregator.ReviewerRecords(context.Background(), 100, nil)

		assert.Error(t, err)
		assert.Nil(t, records)
		fetcher.AssertExpectations(t)
	})
}

func TestAggregator_Summarize(t *testing.T) {
	pulls := []*domain.PullRequest{
		func() *domain.PullRequest {
			pr := samplePR(1, "a/x.py", "a/y.py", "b/z.py")
			pr.Comments = 4
			return pr
		}(),
		func() *domain.PullRequest {
			pr := samplePR(2, "b/z.py")
			pr.Comments = 2
			return pr
		}(),
	}
	fetcher := new(mockFetcher)
	fetcher.On("FetchPullRequests", mock.Anything, "all", 0).Return(pulls, nil)
	aggregator := newTestAggregator(fetcher)

	summaries, err := aggregator.Summarize(context.Background(), "all", 0)

	require.NoError(t, err)
	// Sorted by module name; PR #1's majority module is "a", PR #2's is "b".
	require.Len(t, summaries, 2)
	assert.Equal(t, domain.ModuleSummary{
		Module:         "a",
		PullRequests:   1,
		FileTouches:    2,
		MeanComments:   4,
		MedianComments: 4,
	}, summaries[0])
	// Comment statistics are file-touch-weighted: module "b" was touched
	// once by the 4-comment PR and once by the 2-comment PR, so the mean
	// is 3 even though the module is the majority module of only one PR.
	assert.Equal(t, domain.ModuleSummary{
		Module:         "b",
		PullRequests:   1,
		FileTouches:    2,
		MeanComments:   3,
		MedianComments: 3,
	}, summaries[1])
	fetcher.AssertExpectations(t)
}
