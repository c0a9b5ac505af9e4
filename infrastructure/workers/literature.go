package workers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/ports"
)

// maxCitations caps how many citations a single run surfaces.
const maxCitations = 10

// LiteratureWorker fans the request's query out across its configured
// literature searchers, merges the citations, and optionally asks the
// generation backend for a one-paragraph synthesis of the top hits.
type LiteratureWorker struct {
	Base
	searchers []ports.LiteratureSearcher
}

var _ ports.Worker = (*LiteratureWorker)(nil)

// NewLiteratureWorker constructs the literature worker. The generator
// is optional; without it the worker reports citations only.
func NewLiteratureWorker(searchers []ports.LiteratureSearcher, generator ports.Generator, templates ports.TemplateLoader, logger *zap.Logger) *LiteratureWorker {
	return &LiteratureWorker{
		Base:      NewBase(domain.WorkerLiterature, generator, templates, logger),
		searchers: searchers,
	}
}

func (w *LiteratureWorker) Validate() error {
	if err := w.Base.Validate(); err != nil {
		return err
	}
	if len(w.searchers) == 0 {
		return fmt.Errorf("literature worker requires at least one searcher")
	}
	return nil
}

func (w *LiteratureWorker) Execute(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	query := ec.Query
	if query == "" {
		query = ec.StudyID
	}

	citations, err := w.searchAll(ctx, query)
	if err != nil {
		return nil, err
	}

	result := domain.NewWorkerResult(domain.WorkerLiterature)
	if len(citations) == 0 {
		result.MarkInsufficient("no literature found for query")
		return result, nil
	}

	refs := make([]map[string]any, len(citations))
	for i, citation := range citations {
		refs[i] = map[string]any{
			"reference": citation.Reference,
			"title":     citation.Title,
			"relevance": citation.Relevance,
		}
		result.AddEvidence(domain.NewEvidence(domain.EvidenceLiterature, citation.Reference, citation.Relevance))
	}
	result.Data["citations"] = refs
	result.Data["citation_count"] = float64(len(citations))
	result.Confidence = citations[0].Relevance

	result.Narrative = fmt.Sprintf("Found %d relevant publication(s); top match: %s.",
		len(citations), citations[0].Title)
	if w.generator != nil && w.templates != nil {
		if summary, err := w.summarize(ctx, ec, citations); err == nil {
			result.Narrative = summary
			result.AddEvidence(domain.NewEvidence(domain.EvidenceModelInference,
				"literature-summary/"+ec.RequestID, 0.7))
		} else {
			w.logger.Warn("literature summary generation failed", zap.Error(err))
		}
	}
	return result, nil
}

// searchAll queries every searcher concurrently. A single searcher's
// failure is logged and tolerated as long as any other succeeds.
func (w *LiteratureWorker) searchAll(ctx context.Context, query string) ([]ports.Citation, error) {
	var mu sync.Mutex
	var merged []ports.Citation
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, searcher := range w.searchers {
		g.Go(func() error {
			citations, err := searcher.Search(gctx, query)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				w.logger.Warn("literature search failed",
					zap.String("searcher", searcher.Name()), zap.Error(err))
				return nil
			}
			merged = append(merged, citations...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failures == len(w.searchers) {
		return nil, fmt.Errorf("all %d literature searcher(s) failed", failures)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Relevance > merged[j].Relevance })
	seen := make(map[string]bool, len(merged))
	deduped := merged[:0]
	for _, citation := range merged {
		if seen[citation.Reference] {
			continue
		}
		seen[citation.Reference] = true
		deduped = append(deduped, citation)
		if len(deduped) == maxCitations {
			break
		}
	}
	return deduped, nil
}

func (w *LiteratureWorker) summarize(ctx context.Context, ec *domain.ExecutionContext, citations []ports.Citation) (string, error) {
	titles := make([]string, 0, len(citations))
	for _, citation := range citations {
		titles = append(titles, citation.Title+" ("+citation.Reference+")")
	}
	prompt, err := w.prompt("worker_finding", map[string]any{
		"Specialty": "literature",
		"StudyID":   ec.StudyID,
		"Finding":   fmt.Sprintf("relevant publications: %v", titles),
	})
	if err != nil {
		return "", err
	}
	return w.generate(ctx, ec, prompt, map[string]any{"temperature": 0.2, "max_tokens": 256})
}
