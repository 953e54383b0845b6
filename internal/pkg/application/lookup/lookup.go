package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/diwise/county-lookup/pkg/counties"
	"github.com/diwise/county-lookup/pkg/geo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("county-lookup/app")

var ErrInvalidPoint = errors.New("point coordinates must be finite numbers")

type PointResolver interface {
	ResolvePoint(ctx context.Context, lat, lon float64) (counties.Result, error)
}

type BatchResolver interface {
	ResolveBatch(ctx context.Context, points []geo.Point) (*BatchResult, error)
}

type RecordResolver interface {
	ResolveRecords(ctx context.Context, records []counties.Record) (*RecordBatchResult, error)
}

type CountyResolver interface {
	PointResolver
	BatchResolver
	RecordResolver
}

// BatchResult holds one result per input point, in input order, together
// with an id that callers can use to correlate logs and stored results.
type BatchResult struct {
	ID      string            `json:"id"`
	Results []counties.Result `json:"results"`
}

type RecordBatchResult struct {
	ID      string                  `json:"id"`
	Results []counties.RecordResult `json:"results"`
}

// ResultSink receives resolved batches after the fact. Sinks are strictly
// observers: a failing sink must never fail the lookup itself.
type ResultSink interface {
	StoreBatch(ctx context.Context, batchID string, results []counties.Result) error
	StoreRecordBatch(ctx context.Context, batchID string, results []counties.RecordResult) error
}

func New(index *counties.CountyIndex, sink ResultSink) CountyResolver {
	if sink == nil {
		sink = NewNoopSink()
	}

	return &app{index: index, sink: sink}
}

type app struct {
	index *counties.CountyIndex
	sink  ResultSink
}

func (a *app) ResolvePoint(ctx context.Context, lat, lon float64) (counties.Result, error) {
	var err error

	_, span := tracer.Start(ctx, "resolve-point")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	p := geo.NewPoint(lat, lon)
	if !p.IsFinite() {
		err = fmt.Errorf("%w: (%f, %f)", ErrInvalidPoint, lat, lon)
		return counties.Result{}, err
	}

	if name, ok := a.index.Lookup(p); ok {
		return counties.Result{Name: name, Found: true}, nil
	}

	return counties.Result{}, nil
}

func (a *app) ResolveBatch(ctx context.Context, points []geo.Point) (*BatchResult, error) {
	ctx, span := tracer.Start(ctx, "resolve-batch")
	defer span.End()

	batch := &BatchResult{
		ID:      uuid.NewString(),
		Results: a.index.LookupAll(points),
	}

	if err := a.sink.StoreBatch(ctx, batch.ID, batch.Results); err != nil {
		logging.GetFromContext(ctx).Error("failed to store batch results", "batch_id", batch.ID, "err", err.Error())
	}

	return batch, nil
}

func (a *app) ResolveRecords(ctx context.Context, records []counties.Record) (*RecordBatchResult, error) {
	ctx, span := tracer.Start(ctx, "resolve-records")
	defer span.End()

	batch := &RecordBatchResult{
		ID:      uuid.NewString(),
		Results: a.index.LookupAllRecords(records),
	}

	if err := a.sink.StoreRecordBatch(ctx, batch.ID, batch.Results); err != nil {
		logging.GetFromContext(ctx).Error("failed to store record batch results", "batch_id", batch.ID, "err", err.Error())
	}

	return batch, nil
}

func NewNoopSink() ResultSink {
	return &noopSink{}
}

type noopSink struct{}

func (s *noopSink) StoreBatch(ctx context.Context, batchID string, results []counties.Result) error {
	return nil
}

func (s *noopSink) StoreRecordBatch(ctx context.Context, batchID string, results []counties.RecordResult) error {
	return nil
}
