package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spigell/hr-copilot/internal/extract"
	"github.com/spigell/hr-copilot/internal/identity"
	"github.com/spigell/hr-copilot/internal/logger"
	"github.com/spigell/hr-copilot/internal/store"
	"github.com/spigell/hr-copilot/internal/utils"
	"go.uber.org/zap"
)

const (
	// ScreeningCollection is the store collection holding screening history.
	ScreeningCollection = "screening_records"

	// ReasonParse marks screenings that failed because the model reply had
	// no parseable structured payload.
	ReasonParse = "parse"

	jobTitlePreviewLimit = 80
	persistTimeout       = 10 * time.Second
)

// ScreeningError is returned when a screening cannot produce a result.
type ScreeningError struct {
	Reason string
	Err    error
}

func (e *ScreeningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("screening: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("screening: %s", e.Reason)
}

func (e *ScreeningError) Unwrap() error { return e.Err }

// ScreeningRecord is the summarized, persisted form of a ScreeningResult.
// The full strengths/gaps detail is deliberately not retained.
type ScreeningRecord struct {
	ID              string    `json:"-"`
	JobTitlePreview string    `json:"job_title_preview"`
	Score           int       `json:"score"`
	Recommendation  string    `json:"recommendation"`
	CreatedAt       time.Time `json:"-"`
	CreatedBy       string    `json:"-"`
}

// Screener runs one-shot resume screenings and records a summary of every
// successful one.
type Screener struct {
	invoker Invoker
	store   store.Store
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewScreener builds a screener. The store may be nil, in which case results
// are returned but no history is recorded.
func NewScreener(invoker Invoker, st store.Store, log *zap.Logger) *Screener {
	if log == nil {
		log = zap.NewNop()
	}

	return &Screener{
		invoker: invoker,
		store:   st,
		logger:  log.With(zap.String(logger.FieldAgent, "screening")),
	}
}

// Screen matches the resume against the job description. Both inputs must be
// non-empty; otherwise nothing happens. On success the result is returned
// for immediate display and a summarized record is persisted on the side;
// persistence failures never revoke the result.
func (s *Screener) Screen(ctx context.Context, who identity.Identity, jobDescription, resumeText string) (*ScreeningResult, error) {
	jobDescription = strings.TrimSpace(jobDescription)
	resumeText = strings.TrimSpace(resumeText)
	if jobDescription == "" || resumeText == "" {
		return nil, ErrEmptyInput
	}

	prompt := renderTemplate(screeningTemplate, map[string]string{
		"JOB_DESCRIPTION": jobDescription,
		"RESUME":          resumeText,
	})

	raw := s.invoker.Invoke(ctx, prompt, "")

	var result ScreeningResult
	if err := extract.Parse(raw, &result); err != nil {
		s.logger.Warn("screening response not parseable",
			zap.String("response_preview", utils.TruncateForLog(raw, jobTitlePreviewLimit)),
			zap.Error(err),
		)
		return nil, &ScreeningError{Reason: ReasonParse, Err: err}
	}

	s.logger.Info("screening completed",
		zap.Int("score", result.Score),
		zap.String("recommendation", result.Recommendation),
	)

	s.persist(who, jobDescription, result)

	return &result, nil
}

// Wait blocks until pending history writes finish. The CLI calls it before
// exiting so fire-and-forget writes are not lost to process shutdown.
func (s *Screener) Wait() {
	s.wg.Wait()
}

// persist appends the summarized record on its own task, joined to the
// screening only by shared input data. The caller is never blocked or failed
// by the write.
func (s *Screener) persist(who identity.Identity, jobDescription string, result ScreeningResult) {
	if s.store == nil {
		s.logger.Debug("no store configured, skipping screening record")
		return
	}

	rec := store.Record{
		CreatedBy: who.ID,
		Fields: map[string]any{
			"job_title_preview": utils.TruncateForLog(jobDescription, jobTitlePreviewLimit),
			"score":             result.Score,
			"recommendation":    result.Recommendation,
		},
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		id, err := s.store.Append(ctx, ScreeningCollection, rec)
		if err != nil {
			s.logger.Warn("screening record write failed", zap.Error(err))
			return
		}

		s.logger.Debug("screening record stored", zap.String("record_id", id))
	}()
}

// ScreeningRecords decodes a store snapshot into typed history entries,
// preserving order.
func ScreeningRecords(snapshot []store.Record) []ScreeningRecord {
	records := make([]ScreeningRecord, 0, len(snapshot))
	for _, rec := range snapshot {
		var entry ScreeningRecord
		if err := extract.Decode(rec.Fields, &entry); err != nil {
			continue
		}
		entry.ID = rec.ID
		entry.CreatedAt = rec.CreatedAt
		entry.CreatedBy = rec.CreatedBy
		records = append(records, entry)
	}
	return records
}
