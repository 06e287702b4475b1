package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pricewise/internal/camera"
)

// ScanResult is the outcome of one bill scan
type ScanResult struct {
	Records []LineItem `json:"records"`
	Text    string     `json:"-"`
	// Fallback is true when the extractor found nothing and the fixed
	// sample set was substituted. The UI messages this differently so
	// the user isn't misled into thinking real data was read.
	Fallback bool `json:"fallback"`
}

// ProgressFunc receives coarse progress checkpoints during a scan. Only
// monotonic non-decrease is meaningful, not the exact percentages.
type ProgressFunc func(percent int)

// SampleItems is the documented placeholder set substituted when a scan
// yields no usable records
func SampleItems() []LineItem {
	return []LineItem{
		{Name: "Tomato", Price: 40, Quantity: 1},
		{Name: "Onion", Price: 30, Quantity: 1},
		{Name: "Milk", Price: 60, Quantity: 1},
	}
}

// Pipeline orchestrates one scan: grab a frame from the camera session,
// run the recognition engine over it, and extract candidate line items.
// The engine is shared across scans for the lifetime of the scan screen.
type Pipeline struct {
	engine Engine
}

// NewPipeline creates a Pipeline over a recognition engine
func NewPipeline(engine Engine) *Pipeline {
	return &Pipeline{engine: engine}
}

// Scan captures a frame from the session and turns it into candidate
// records. Capture is single-shot: the session is stopped on every exit
// path, success or failure, so the screen always returns to a
// re-scannable state.
func (p *Pipeline) Scan(ctx context.Context, session *camera.Session, progress ProgressFunc) (*ScanResult, error) {
	report := monotonic(progress)

	// Release the device no matter how we leave
	defer session.Stop()

	frame, err := session.Grab()
	if err != nil {
		return nil, err
	}
	report(10)

	report(50)
	text, err := p.engine.Recognize(ctx, frame.Data, frame.ContentType)
	if err != nil {
		slog.Error("Recognition failed",
			"content_type", frame.ContentType,
			"frame_size", len(frame.Data),
			"error", err,
		)
		return nil, fmt.Errorf("recognizing bill text: %w", err)
	}

	records := ExtractLineItems(text)
	report(90)

	result := &ScanResult{Records: records, Text: text}
	if len(records) == 0 {
		// Never present an empty confirmation screen; substitute the
		// sample set and flag it.
		slog.Warn("Extraction yielded no records, substituting samples",
			"text_len", len(strings.TrimSpace(text)))
		result.Records = SampleItems()
		result.Fallback = true
	}

	report(100)
	return result, nil
}

// monotonic wraps a progress function so reported percentages never
// decrease. A nil function is a no-op.
func monotonic(progress ProgressFunc) ProgressFunc {
	if progress == nil {
		return func(int) {}
	}
	last := -1
	return func(percent int) {
		if percent <= last {
			return
		}
		last = percent
		progress(percent)
	}
}
