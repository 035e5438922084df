package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/buckminster/backend/internal/models"
)

// StageCaller is the two-stage external completion capability.
type StageCaller interface {
	Describe(ctx context.Context, imageBase64 string, cfg models.ModelConfig) (string, error)
	Answer(ctx context.Context, description string, cfg models.ModelConfig) (string, error)
}

// UsageRecorder records one successful inference against an account.
type UsageRecorder interface {
	IncrementCallsTotal(ctx context.Context, id uuid.UUID) error
}

// Analyzer chains the vision and text stages and records usage. Any failure
// of either external stage is re-classified as ErrUpstream so the account is
// never billed for an outage and no provider error detail reaches the client.
type Analyzer struct {
	LLM   StageCaller
	Usage UsageRecorder
	Log   *slog.Logger
}

func NewAnalyzer(llm StageCaller, usage UsageRecorder, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{LLM: llm, Usage: usage, Log: log}
}

// Analyze runs the full pipeline for an already-authenticated, quota-checked
// account and returns the text stage's output verbatim.
func (s *Analyzer) Analyze(ctx context.Context, account *models.Account, imageBase64 string) (string, error) {
	if !account.VisionConfig.Complete() || !account.TextConfig.Complete() {
		return "", ErrModelConfigIncomplete
	}

	// A client disconnect must not abort in-flight external calls; each
	// stage is still bounded by the client's own timeout.
	callCtx := context.WithoutCancel(ctx)

	description, err := s.LLM.Describe(callCtx, imageBase64, account.VisionConfig)
	if err != nil {
		s.Log.Error("vision stage failed", "account_id", account.ID, "error", err)
		return "", ErrUpstream
	}

	answer, err := s.LLM.Answer(callCtx, description, account.TextConfig)
	if err != nil {
		s.Log.Error("text stage failed", "account_id", account.ID, "error", err)
		return "", ErrUpstream
	}

	if err := s.Usage.IncrementCallsTotal(ctx, account.ID); err != nil {
		return "", err
	}
	return answer, nil
}
