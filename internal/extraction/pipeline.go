package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TempStore holds temporary rendered-page artifacts for the duration of
// one scan. Implementations are provided by the blob package.
type TempStore interface {
	Put(name string, data []byte) (string, error)
	Delete(path string) error
}

// Pipeline sequences rasterization and extraction attempts and decides
// when to escalate from single-page to multi-page extraction. A
// pipeline is safe for concurrent use; every invocation operates on its
// own input bytes and produces its own result.
type Pipeline struct {
	rasterizer Rasterizer
	extractor  Extractor
	tempStore  TempStore
	scale      float64
}

// NewPipeline creates a Pipeline with the default rendering scale.
// tempStore may be nil, in which case page renders are kept in memory
// only.
func NewPipeline(rasterizer Rasterizer, extractor Extractor, tempStore TempStore) *Pipeline {
	return &Pipeline{
		rasterizer: rasterizer,
		extractor:  extractor,
		tempStore:  tempStore,
		scale:      DefaultScale,
	}
}

// runState enumerates the orchestrator's states. The escalation logic
// lives entirely in the step transitions so it can be tested without
// mocking the network twice per case.
type runState int

const (
	stateStart runState = iota
	stateRendered1
	stateExtracted1
	stateRendered2
	stateExtracted2
	stateDone
	stateFailed
)

// scanRun carries the transient artifacts of one PDF scan invocation.
// Nothing here outlives the request.
type scanRun struct {
	state     runState
	document  []byte
	page1     []byte
	page2     []byte
	attempt1  *Result
	final     *Result
	err       error
	attempts  int
	tempPaths []string
}

// Scan runs the full pipeline for one uploaded receipt. Plain images go
// straight to a single-page extraction; PDFs go through the
// render/extract/escalate state machine. At most two extractor calls
// are made per invocation.
func (p *Pipeline) Scan(ctx context.Context, data []byte, contentType string) (*Result, error) {
	if !isPDF(contentType) {
		img, err := prepareImage(data, contentType)
		if err != nil {
			return nil, err
		}
		// Terminal regardless of confidence; escalation only applies
		// to PDFs, where more pages might exist.
		return p.extractor.Extract(ctx, [][]byte{img}, SinglePagePrompt)
	}

	run := &scanRun{state: stateStart, document: data}
	defer p.cleanup(run)

	for run.state != stateDone && run.state != stateFailed {
		p.step(ctx, run)
	}

	if run.state == stateFailed {
		return nil, run.err
	}
	return run.final, nil
}

// ScanPages runs a direct extraction over pre-rendered page images,
// bypassing rasterization and escalation. Used when the caller already
// holds one image per page.
func (p *Pipeline) ScanPages(ctx context.Context, pages [][]byte, contentTypes []string) (*Result, error) {
	if len(pages) < 1 || len(pages) > 2 {
		return nil, fmt.Errorf("exactly one or two pages are required, got %d", len(pages))
	}

	images := make([][]byte, 0, len(pages))
	for i, page := range pages {
		img, err := prepareImage(page, contentTypes[i])
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	variant := SinglePagePrompt
	if len(images) == 2 {
		variant = MultiPagePrompt
	}
	return p.extractor.Extract(ctx, images, variant)
}

// step performs exactly one state transition.
func (p *Pipeline) step(ctx context.Context, run *scanRun) {
	switch run.state {

	case stateStart:
		page, ok := p.rasterizer.RenderPage(run.document, 1, p.scale)
		if !ok {
			run.err = ErrRenderFailed
			run.state = stateFailed
			return
		}
		run.page1 = page
		p.stash(run, 1, page)
		run.state = stateRendered1

	case stateRendered1:
		result, err := p.extractor.Extract(ctx, [][]byte{run.page1}, SinglePagePrompt)
		run.attempts++
		if err != nil {
			// A first-attempt failure surfaces; there is no prior
			// result to degrade to.
			run.err = err
			run.state = stateFailed
			return
		}
		run.attempt1 = result
		run.state = stateExtracted1

	case stateExtracted1:
		if totalUsable(run.attempt1) {
			run.final = run.attempt1
			run.state = stateDone
			return
		}
		if p.rasterizer.PageCount(run.document) < 2 {
			// No second page exists to help.
			run.final = run.attempt1
			run.state = stateDone
			return
		}
		page, ok := p.rasterizer.RenderPage(run.document, 2, p.scale)
		if !ok {
			// Graceful degradation: page 2 missing or unrenderable.
			slog.Warn("Page 2 render failed, keeping first-attempt result")
			run.final = run.attempt1
			run.state = stateDone
			return
		}
		run.page2 = page
		p.stash(run, 2, page)
		run.state = stateRendered2

	case stateRendered2:
		result, err := p.extractor.Extract(ctx, [][]byte{run.page1, run.page2}, MultiPagePrompt)
		run.attempts++
		if err != nil {
			// Attempt 1 already produced a usable (if imperfect)
			// result, so an escalation failure degrades rather than
			// erroring.
			slog.Warn("Multi-page extraction failed, keeping first-attempt result", "error", err)
			run.final = run.attempt1
			run.state = stateExtracted2
			return
		}
		run.final = result
		run.state = stateExtracted2

	case stateExtracted2:
		// Attempt 2 is final regardless of its own confidence; there
		// is no escalation beyond two attempts.
		run.state = stateDone
	}
}

// stash uploads a rendered page to the temporary store and records the
// path for post-scan deletion. Upload failure is logged and ignored;
// the in-memory bytes are what the extractor consumes.
func (p *Pipeline) stash(run *scanRun, page int, data []byte) {
	if p.tempStore == nil {
		return
	}
	name := fmt.Sprintf("scan-%d-page%d.jpg", time.Now().UnixNano(), page)
	path, err := p.tempStore.Put(name, data)
	if err != nil {
		slog.Warn("Failed to stash rendered page", "page", page, "error", err)
		return
	}
	run.tempPaths = append(run.tempPaths, path)
}

// cleanup deletes temporary page renders after the scan reaches any
// terminal state. It is scheduled before Scan returns but runs
// fire-and-forget: its own failures are logged and never propagated.
func (p *Pipeline) cleanup(run *scanRun) {
	if p.tempStore == nil || len(run.tempPaths) == 0 {
		return
	}
	paths := run.tempPaths
	go func() {
		for _, path := range paths {
			if err := p.tempStore.Delete(path); err != nil {
				slog.Warn("Failed to delete temporary page render", "path", path, "error", err)
			}
		}
	}()
}
