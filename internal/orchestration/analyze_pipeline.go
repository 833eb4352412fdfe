package orchestration

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/concfetch/internal/analysis"
	"github.com/agbru/concfetch/internal/fetch"
	"github.com/agbru/concfetch/internal/logging"
	"github.com/agbru/concfetch/internal/substrate"
)

// Aggregate is the combined result of every fetch+analyze chain.
type Aggregate struct {
	TotalOnes  uint64
	TotalZeros uint64
	// Ratio is TotalOnes / TotalZeros as a float division: +Inf when no
	// zero bit was seen, NaN when no bit was seen at all.
	Ratio float64
}

// Ratio divides ones by zeros without guarding against zero.
func Ratio(ones, zeros uint64) float64 {
	return float64(ones) / float64(zeros)
}

// Summarize scans outcomes in order and returns the first error it meets.
// Results after that error are not summed even though their chains have
// already finished. When every outcome succeeded it returns the totals and
// their ratio.
func Summarize(outcomes []substrate.Outcome[analysis.Counts]) (Aggregate, error) {
	var total analysis.Counts
	for _, out := range outcomes {
		if !out.OK() {
			return Aggregate{}, out.Err
		}
		total = total.Add(out.Value)
	}
	return Aggregate{
		TotalOnes:  total.Ones,
		TotalZeros: total.Zeros,
		Ratio:      Ratio(total.Ones, total.Zeros),
	}, nil
}

// FetchAndAnalyze fetches the dataset for label, decodes it as text and
// runs the analysis on the blocking lane. It fails on a fetch error, on a
// body that is not text, or when the blocking lane cannot run the analysis.
func (o *Orchestrator) FetchAndAnalyze(ctx context.Context, label int) (counts analysis.Counts, err error) {
	ctx, span := o.tracer.Start(ctx, "chain.fetch_analyze", trace.WithAttributes(
		attribute.Int("concfetch.label", label),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := o.client.Get(ctx, label)
	if err != nil {
		return analysis.Counts{}, err
	}
	o.logger.Printf("Dataset %d", label)

	text, err := fetch.DecodeText(label, body)
	if err != nil {
		return analysis.Counts{}, err
	}

	counts, err = substrate.SpawnBlocking(o.rt, func() analysis.Counts {
		return analysis.AnalyzeString(text)
	}).Await(ctx)
	if err != nil {
		return analysis.Counts{}, err
	}
	o.metrics.AnalyzedBytes.Add(float64(len(text)))
	span.SetAttributes(attribute.Int64("concfetch.bits", int64(counts.Total())))
	o.logger.Printf("Processed %d", label)
	return counts, nil
}

// RunFetchAndAnalyze starts ten fetch+analyze chains (labels 1..10) on the
// async lane, waits for all of them, and aggregates their counts. The
// first failing chain in label order decides the outcome; on success the
// ratio of ones to zeros is logged.
func (o *Orchestrator) RunFetchAndAnalyze(ctx context.Context) (agg Aggregate, err error) {
	ctx, finish := o.startRun(ctx, PipelineAnalyze)
	defer func() { finish(err) }()

	handles := make([]*substrate.Handle[analysis.Counts], 0, o.analyzeCount)
	for label := 1; label <= o.analyzeCount; label++ {
		handles = append(handles, substrate.Spawn(ctx, o.rt, func(ctx context.Context) (analysis.Counts, error) {
			return o.FetchAndAnalyze(ctx, label)
		}))
	}

	outcomes, err := substrate.JoinAll(ctx, handles)
	if err != nil {
		return Aggregate{}, err
	}
	agg, err = Summarize(outcomes)
	if err != nil {
		return Aggregate{}, err
	}
	o.logger.Debug("aggregate",
		logging.Uint64("ones", agg.TotalOnes),
		logging.Uint64("zeros", agg.TotalZeros),
		logging.Float64("ratio", agg.Ratio),
	)
	o.logger.Printf("Ratio of ones/zeros: %.02f", agg.Ratio)
	return agg, nil
}
