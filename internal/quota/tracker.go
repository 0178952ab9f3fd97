package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/park285/agency-dashboard/internal/metrics"
)

const tracerName = "github.com/park285/agency-dashboard/internal/quota"

// Tracker: 일일 열람 한도의 조회/증가/리셋을 담당합니다.
// 프로세스 내에 카운트를 캐시하지 않으며 모든 연산은 Store를 통해 읽고 씁니다.
type Tracker struct {
	store  Store
	atomic AtomicStore
	limit  int
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger
	tracer trace.Tracer
}

// Option: Tracker 설정 함수
type Option func(*Tracker)

// WithLimit: 일일 한도를 지정합니다. 0 이하 값은 무시됩니다.
func WithLimit(limit int) Option {
	return func(t *Tracker) {
		if limit > 0 {
			t.limit = limit
		}
	}
}

// WithClock: 현재 시각 함수를 교체합니다.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLocation: 날짜 경계 계산에 쓸 타임존을 지정합니다.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithLogger: 로거를 지정합니다.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithStrict: 저장소가 AtomicStore를 구현하면 원자적 증가 경로를 사용합니다.
func WithStrict(strict bool) Option {
	return func(t *Tracker) {
		if !strict {
			t.atomic = nil
			return
		}
		if atomicStore, ok := t.store.(AtomicStore); ok {
			t.atomic = atomicStore
		}
	}
}

// NewTracker: Tracker를 생성합니다.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		limit:  DefaultDailyLimit,
		now:    time.Now,
		loc:    time.Local,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Limit: 설정된 일일 한도
func (t *Tracker) Limit() int { return t.limit }

// Strict: 원자적 증가 경로 사용 여부
func (t *Tracker) Strict() bool { return t.atomic != nil }

// Today: 평가 시점의 날짜 문자열
func (t *Tracker) Today() string {
	return t.now().In(t.loc).Format(DateLayout)
}

// Status: 현재 한도 상태를 조회합니다. 날짜가 바뀐 레코드는 0으로 보고하되 저장하지 않습니다.
func (t *Tracker) Status(ctx context.Context, userID string) (Status, error) {
	if userID == "" {
		return Status{}, ErrUnauthenticated
	}
	ctx, span := t.tracer.Start(ctx, "quota.Status")
	defer span.End()

	rec, err := t.store.Load(ctx, userID)
	if err != nil {
		recordSpanError(span, err)
		return Status{}, fmt.Errorf("load quota record: %w", err)
	}

	today := t.Today()
	count := effectiveCount(rec, today)
	span.SetAttributes(attribute.Int("quota.count", count))

	return Status{
		UserID:      userID,
		Count:       count,
		Limit:       t.limit,
		Remaining:   remaining(t.limit, count),
		HasExceeded: count >= t.limit,
		Date:        today,
	}, nil
}

// Increment: 한도 내이면 카운트를 1 올리고 저장합니다.
// 한도에 도달한 경우 저장 없이 증가 전 수치와 ErrLimitExceeded를 반환합니다.
// 기본 경로는 load 후 save 하므로 동시 요청 간 갱신 유실이 발생할 수 있습니다.
func (t *Tracker) Increment(ctx context.Context, userID string) (IncrementResult, error) {
	if userID == "" {
		return IncrementResult{}, ErrUnauthenticated
	}
	ctx, span := t.tracer.Start(ctx, "quota.Increment",
		trace.WithAttributes(attribute.Bool("quota.strict", t.Strict())))
	defer span.End()

	today := t.Today()
	var (
		res IncrementResult
		err error
	)
	if t.atomic != nil {
		res, err = t.incrementAtomic(ctx, userID, today)
	} else {
		res, err = t.incrementLoadSave(ctx, userID, today)
	}

	switch {
	case err == nil:
		metrics.QuotaDecisions.WithLabelValues(metrics.ResultAccepted, t.mode()).Inc()
	case errors.Is(err, ErrLimitExceeded):
		metrics.QuotaDecisions.WithLabelValues(metrics.ResultRejected, t.mode()).Inc()
		t.logger.InfoContext(ctx, "quota_increment_rejected",
			slog.String("user_id", userID),
			slog.Int("count", res.Count),
			slog.Int("limit", t.limit),
		)
	default:
		metrics.QuotaDecisions.WithLabelValues(metrics.ResultError, t.mode()).Inc()
		recordSpanError(span, err)
	}
	span.SetAttributes(attribute.Int("quota.count", res.Count), attribute.Bool("quota.success", res.Success))
	return res, err
}

func (t *Tracker) incrementLoadSave(ctx context.Context, userID, today string) (IncrementResult, error) {
	rec, err := t.store.Load(ctx, userID)
	if err != nil {
		return IncrementResult{}, fmt.Errorf("load quota record: %w", err)
	}

	count := effectiveCount(rec, today)
	if count >= t.limit {
		return t.result(false, count, today), ErrLimitExceeded
	}

	next := Record{Count: count + 1, Date: today, UserID: userID}
	if err := t.store.Save(ctx, userID, next); err != nil {
		return IncrementResult{}, fmt.Errorf("save quota record: %w", err)
	}
	return t.result(true, next.Count, today), nil
}

func (t *Tracker) incrementAtomic(ctx context.Context, userID, today string) (IncrementResult, error) {
	rec, ok, err := t.atomic.IncrementWithin(ctx, userID, today, t.limit)
	if err != nil {
		return IncrementResult{}, fmt.Errorf("atomic quota increment: %w", err)
	}
	count := effectiveCount(&rec, today)
	if !ok {
		return t.result(false, count, today), ErrLimitExceeded
	}
	return t.result(true, count, today), nil
}

// Reset: 오늘 날짜로 카운트를 0으로 덮어씁니다. 운영/디버그 용도입니다.
func (t *Tracker) Reset(ctx context.Context, userID string) (Status, error) {
	if userID == "" {
		return Status{}, ErrUnauthenticated
	}
	ctx, span := t.tracer.Start(ctx, "quota.Reset")
	defer span.End()

	today := t.Today()
	if err := t.store.Save(ctx, userID, Record{Count: 0, Date: today, UserID: userID}); err != nil {
		recordSpanError(span, err)
		return Status{}, fmt.Errorf("reset quota record: %w", err)
	}
	metrics.QuotaResets.Inc()
	t.logger.InfoContext(ctx, "quota_reset", slog.String("user_id", userID), slog.String("date", today))

	return Status{
		UserID:    userID,
		Count:     0,
		Limit:     t.limit,
		Remaining: t.limit,
		Date:      today,
	}, nil
}

func (t *Tracker) result(success bool, count int, today string) IncrementResult {
	return IncrementResult{
		Success:     success,
		Count:       count,
		Limit:       t.limit,
		Remaining:   remaining(t.limit, count),
		HasExceeded: count >= t.limit,
		Date:        today,
	}
}

func (t *Tracker) mode() string {
	if t.atomic != nil {
		return "strict"
	}
	return "relaxed"
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
