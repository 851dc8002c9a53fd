package diagnosis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/verdant-vision/internal/application"
	"github.com/bryanwahyu/verdant-vision/internal/domain/detection"
	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

const (
	// DefaultMaxRetries total attempts per Detect call, first one included
	DefaultMaxRetries = 3
	// DefaultRetryDelay base of the linear backoff (delay * attempt)
	DefaultRetryDelay = time.Second
)

// Metrics hook for detection counters; nil means no metrics
type Metrics interface {
	AttemptObserved(result string)
	DetectionFinished(kind string)
}

// Summarizer is implemented by repositories that can aggregate their own snapshot
type Summarizer interface {
	Summarize(ctx context.Context) (domain.AnalyticsSummary, error)
}

// Service orchestrates disease detection and the diagnosis history.
// Safe for concurrent use as long as the ports are.
type Service struct {
	Detector detection.Detector
	Repo     domain.Repository
	// Images is optional; when set, data URI photos are uploaded on save
	Images  domain.ImageStore
	Clock   application.Clock
	Sleeper application.Sleeper
	Logger  *zap.Logger
	Metrics Metrics

	MaxRetries int
	RetryDelay time.Duration
}

//
// ==== USE CASES ====
//

// SaveCommand input untuk DetectAndSave
type SaveCommand struct {
	Input detection.Input
	// PhotoRef reference to the analysed image kept on the record
	PhotoRef string
	UserID   string
}

// Detect calls the detection flow with retries and returns its result unchanged.
// Failures are *detection.Error values.
func (s *Service) Detect(ctx context.Context, in detection.Input) (domain.Result, error) {
	out := s.run(ctx, in)
	if out.Err != nil {
		s.metrics().DetectionFinished(string(out.Err.Kind))
		return domain.Result{}, out.Err
	}
	s.metrics().DetectionFinished(string(StateSuccess))
	s.logger().Info("disease detection succeeded",
		zap.Int("attempts", len(out.Attempts)),
		zap.Int("diagnoses", len(out.Result.Diagnoses)),
	)
	return *out.Result, nil
}

// DetectAndSave runs Detect and, on success, appends a new record to the history
// before returning the result.
func (s *Service) DetectAndSave(ctx context.Context, cmd SaveCommand) (domain.Result, error) {
	res, err := s.Detect(ctx, cmd.Input)
	if err != nil {
		return domain.Result{}, err
	}

	id := domain.RecordID(uuid.New().String())
	rec := domain.Record{
		ID:           id,
		Diagnoses:    res.Clone().Diagnoses,
		PhotoDataURI: s.storePhoto(ctx, id, cmd.PhotoRef),
		Timestamp:    s.clock().Now().UTC(),
		UserID:       cmd.UserID,
	}
	if err := s.Repo.Append(ctx, rec); err != nil {
		return domain.Result{}, fmt.Errorf("save diagnosis: %w", err)
	}
	s.logger().Info("diagnosis saved", zap.String("id", string(rec.ID)), zap.Bool("healthy", rec.Healthy()))
	return res, nil
}

// History all saved records, newest first
func (s *Service) History(ctx context.Context) ([]domain.Record, error) {
	list, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	s.logger().Debug("diagnosis history fetched", zap.Int("count", len(list)))
	return list, nil
}

// Summary aggregate over the current history, recomputed on every call
func (s *Service) Summary(ctx context.Context) (domain.AnalyticsSummary, error) {
	if sum, ok := s.Repo.(Summarizer); ok {
		return sum.Summarize(ctx)
	}
	list, err := s.History(ctx)
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}
	return domain.Summarize(list), nil
}

// storePhoto uploads a data URI photo when an image store is configured.
// Any failure keeps the original reference so the record is still saved.
func (s *Service) storePhoto(ctx context.Context, id domain.RecordID, ref string) string {
	if s.Images == nil || !domain.IsDataURI(ref) {
		return ref
	}
	photo, err := domain.ParsePhoto(ref)
	if err != nil {
		s.logger().Warn("photo not uploaded, keeping data uri", zap.String("id", string(id)), zap.Error(err))
		return ref
	}
	key := fmt.Sprintf("diagnoses/%s%s", id, photo.Extension())
	url, err := s.Images.Upload(ctx, key, photo.ContentType, photo.Data)
	if err != nil {
		s.logger().Warn("photo upload failed, keeping data uri", zap.String("id", string(id)), zap.Error(err))
		return ref
	}
	return url
}

// helper

func (s *Service) maxRetries() int {
	if s.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return s.MaxRetries
}

func (s *Service) retryDelay() time.Duration {
	if s.RetryDelay <= 0 {
		return DefaultRetryDelay
	}
	return s.RetryDelay
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) sleeper() application.Sleeper {
	if s.Sleeper == nil {
		return application.SystemSleeper{}
	}
	return s.Sleeper
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) metrics() Metrics {
	if s.Metrics == nil {
		return noopMetrics{}
	}
	return s.Metrics
}

type noopMetrics struct{}

func (noopMetrics) AttemptObserved(string)   {}
func (noopMetrics) DetectionFinished(string) {}
