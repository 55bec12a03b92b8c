// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/pr-module-map/internal/domain"
)

// Fetcher defines the behavior of a gateway for fetching pull request
// data from GitHub.
type Fetcher interface {
	// FetchPullRequests lists pull requests in the given state, each
	// carrying its full changed-file list. A positive limit caps how
	// many pull requests are fetched; 0 means no cap.
	FetchPullRequests(ctx context.Context, state string, limit int) ([]*domain.PullRequest, error)
	// FetchCommenters returns the distinct logins that commented on the
	// given pull request, in first-comment order.
	FetchCommenters(ctx context.Context, number int) ([]string, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface,
// scoped to a single repository.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	owner         string
	repo          string
	logger        *log.Logger
}

// prCommentsQuery pages through the issue comments of one pull request.
type prCommentsQuery struct {
	Repository struct {
		PullRequest struct {
			Comments struct {
				PageInfo struct {
					HasNextPage bool
					EndCursor   githubv4.String
				}
				Nodes []struct {
					Author struct {
						Login githubv4.String
					}
				}
			} `graphql:"comments(first: 100, after: $cursor)"`
		} `graphql:"pullRequest(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of
// GitHubGateway for the given repository.
func NewGitHubGateway(owner, repo, token string, logger *log.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		owner:         owner,
		repo:          repo,
		logger:        logger,
	}, nil
}

// FetchPullRequests lists pull requests with the REST API and fetches
// each one's changed-file list. The file fetch is a separate round trip
// per pull request; the limit bounds total API cost.
func (g *GitHubGateway) FetchPullRequests(ctx context.Context, state string, limit int) ([]*domain.PullRequest, error) {
	g.logger.Printf("[1/2] Fetching %s pull requests for %s/%s using REST API...\n", state, g.owner, g.repo)
	opts := &github.PullRequestListOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var pulls []*domain.PullRequest
	for {
		page, resp, err := g.restClient.PullRequests.List(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
		for _, pr := range page {
			if limit > 0 && len(pulls) >= limit {
				g.logger.Printf("Reached the fetch cap of %d pull requests, stopping.\n", limit)
				return pulls, nil
			}
			files, err := g.fetchChangedFiles(ctx, pr.GetNumber())
			if err != nil {
				return nil, err
			}
			pulls = append(pulls, &domain.PullRequest{
				Number:    pr.GetNumber(),
				Title:     pr.GetTitle(),
				CreatedAt: pr.GetCreatedAt().Time,
				Comments:  pr.GetComments(),
				URL:       pr.GetHTMLURL(),
				Author:    pr.GetUser().GetLogin(),
				Files:     files,
			})
		}
		if resp.NextPage == 0 || (limit > 0 && len(pulls) >= limit) {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of pull requests...")
	}
	g.logger.Printf("Completed fetching %d pull requests.\n", len(pulls))
	return pulls, nil
}

func (g *GitHubGateway) fetchChangedFiles(ctx context.Context, number int) ([]domain.FileChange, error) {
	opts := &github.ListOptions{PerPage: 100}
	var files []domain.FileChange
	for {
		page, resp, err := g.restClient.PullRequests.ListFiles(ctx, g.owner, g.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list changed files for pull request #%d: %w", number, err)
		}
		for _, f := range page {
			files = append(files, domain.FileChange{Path: f.GetFilename()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

// FetchCommenters fetches the distinct commenter logins of one pull
// request with a paginated GraphQL query.
func (g *GitHubGateway) FetchCommenters(ctx context.Context, number int) ([]string, error) {
	variables := map[string]interface{}{
		"owner":  githubv4.String(g.owner),
		"name":   githubv4.String(g.repo),
		"number": githubv4.Int(number),
		"cursor": (*githubv4.String)(nil),
	}
	seen := make(map[string]struct{})
	var logins []string
	for {
		var q prCommentsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for commenters of #%d: %w", number, err)
		}
		for _, node := range q.Repository.PullRequest.Comments.Nodes {
			login := string(node.Author.Login)
			if login == "" {
				continue
			}
			if _, ok := seen[login]; ok {
				continue
			}
			seen[login] = struct{}{}
			logins = append(logins, login)
		}
		if !q.Repository.PullRequest.Comments.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.PullRequest.Comments.PageInfo.EndCursor)
		g.logger.Printf("  Fetching next page of comments for #%d...\n", number)
	}
	return logins, nil
}
