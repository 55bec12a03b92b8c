// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"log"
	"sort"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/pr-module-map/internal/domain"
	"github.com/naka-gawa/pr-module-map/internal/gateway"
)

// maxConcurrentCommentFetches bounds the parallel per-PR comment
// round trips in the reviewer view.
const maxConcurrentCommentFetches = 8

// Aggregator is the use case that flattens pull requests into the
// record tables consumed by the chart renderer.
type Aggregator struct {
	fetcher gateway.Fetcher
	rules   domain.ModuleRules
	logger  *log.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, rules domain.ModuleRules, logger *log.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		rules:   rules,
		logger:  logger,
	}
}

// FileRecords fetches pull requests in the given state and flattens them
// into one record per (pull request, retained file). Package-marker
// files are excluded, and files with no derivable module are attributed
// to the Other sentinel. A pull request whose files are all excluded
// contributes no rows.
func (a *Aggregator) FileRecords(ctx context.Context, state string, limit int) ([]domain.Record, error) {
	pulls, err := a.fetcher.FetchPullRequests(ctx, state, limit)
	if err != nil {
		return nil, err
	}
	a.logger.Printf("Usecase: flattening %d pull requests into file records...\n", len(pulls))
	records := make([]domain.Record, 0)
	for _, pr := range pulls {
		for _, fc := range pr.Files {
			if a.rules.IsMarker(fc.Path) {
				continue
			}
			module, _ := a.rules.Resolve(fc.Path)
			rec, err := domain.NewRecord(pr, fc.Path, module)
			if err != nil {
				a.logger.Printf("Usecase: skipping invalid record for #%d: %v\n", pr.Number, err)
				continue
			}
			records = append(records, rec)
		}
	}
	a.logger.Printf("Usecase: produced %d file records.\n", len(records))
	return records, nil
}

// ReviewerRecords fetches all pull requests up to the limit and emits
// the cross-product of each pull request's retained files and its human
// contributors (author plus distinct commenters, minus the exclude
// list). Every retained file is attributed to every participant; the
// API does not cheaply expose per-file authorship, so this coarse
// attribution is intentional.
func (a *Aggregator) ReviewerRecords(ctx context.Context, limit int, exclude []string) ([]domain.Record, error) {
	pulls, err := a.fetcher.FetchPullRequests(ctx, "all", limit)
	if err != nil {
		return nil, err
	}

	a.logger.Printf("[2/2] Fetching commenters for %d pull requests...\n", len(pulls))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentCommentFetches)
	for _, pr := range pulls {
		pr := pr
		eg.Go(func() error {
			commenters, err := a.fetcher.FetchCommenters(egCtx, pr.Number)
			if err != nil {
				return err
			}
			pr.Commenters = commenters
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, login := range exclude {
		excluded[login] = struct{}{}
	}

	records := make([]domain.Record, 0)
	for _, pr := range pulls {
		people := contributors(pr, excluded)
		for _, fc := range pr.Files {
			if a.rules.IsMarker(fc.Path) {
				continue
			}
			module, _ := a.rules.Resolve(fc.Path)
			for _, login := range people {
				rec, err := domain.NewRecord(pr, fc.Path, module)
				if err != nil {
					a.logger.Printf("Usecase: skipping invalid record for #%d: %v\n", pr.Number, err)
					continue
				}
				rec.Contributor = login
				records = append(records, rec)
			}
		}
	}
	a.logger.Printf("Usecase: produced %d reviewer records.\n", len(records))
	return records, nil
}

// Summarize fetches pull requests and rolls them up per module: each
// pull request counts once toward its majority module, while file
// touches and comment statistics accumulate on the module of each
// retained file.
func (a *Aggregator) Summarize(ctx context.Context, state string, limit int) ([]domain.ModuleSummary, error) {
	pulls, err := a.fetcher.FetchPullRequests(ctx, state, limit)
	if err != nil {
		return nil, err
	}
	a.logger.Printf("Usecase: summarizing %d pull requests per module...\n", len(pulls))

	type accumulator struct {
		pullRequests int
		fileTouches  int
		comments     []float64
	}
	byModule := make(map[string]*accumulator)
	ensure := func(module string) *accumulator {
		if _, ok := byModule[module]; !ok {
			byModule[module] = &accumulator{}
		}
		return byModule[module]
	}

	for _, pr := range pulls {
		paths := make([]string, 0, len(pr.Files))
		for _, fc := range pr.Files {
			paths = append(paths, fc.Path)
		}
		ensure(a.rules.MajorityModule(paths)).pullRequests++

		for _, fc := range pr.Files {
			if a.rules.IsMarker(fc.Path) {
				continue
			}
			module, ok := a.rules.Resolve(fc.Path)
			if !ok {
				module = domain.OtherModule
			}
			acc := ensure(module)
			acc.fileTouches++
			acc.comments = append(acc.comments, float64(pr.Comments))
		}
	}

	summaries := make([]domain.ModuleSummary, 0, len(byModule))
	for module, acc := range byModule {
		summary := domain.ModuleSummary{
			Module:       module,
			PullRequests: acc.pullRequests,
			FileTouches:  acc.fileTouches,
		}
		if len(acc.comments) > 0 {
			// stats errors only on empty input, which is guarded above.
			summary.MeanComments, _ = stats.Mean(acc.comments)
			summary.MedianComments, _ = stats.Median(acc.comments)
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Module < summaries[j].Module
	})

	a.logger.Println("Usecase: summary complete.")
	return summaries, nil
}

// contributors returns the pull request's human participant set: the
// author first, then commenters in first-comment order, deduplicated
// and with excluded logins removed.
func contributors(pr *domain.PullRequest, excluded map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(pr.Commenters)+1)
	var people []string
	add := func(login string) {
		if login == "" {
			return
		}
		if _, ok := excluded[login]; ok {
			return
		}
		if _, ok := seen[login]; ok {
			return
		}
		seen[login] = struct{}{}
		people = append(people, login)
	}
	add(pr.Author)
	for _, login := range pr.Commenters {
		add(login)
	}
	return people
}
