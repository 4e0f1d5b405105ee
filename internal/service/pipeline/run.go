// Package pipeline orchestrates a question's path from natural language to
// an executed, authorized query. Every question ends in exactly one of
// three terminal states: executed, denied, or failed — and every terminal
// state leaves an audit row.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"genbi/internal/domain"
	"genbi/internal/service/planner"
	"genbi/internal/service/security"
	"genbi/internal/service/synth"
	"genbi/internal/sqlscan"
)

// DefaultMaxAttempts is the synthesis budget: one try plus one retry with
// validator feedback.
const DefaultMaxAttempts = 2

// Runner wires the pipeline stages together.
type Runner struct {
	classifier  *planner.Classifier
	expander    *planner.Expander
	synthesizer *synth.Synthesizer
	validator   *synth.Validator
	grants      domain.GrantRepository
	engine      domain.ExecutionEngine
	audit       domain.AuditRepository
	database    string
	maxAttempts int
	logger      *slog.Logger
}

// RunnerParams collects the Runner's collaborators.
type RunnerParams struct {
	Classifier  *planner.Classifier
	Expander    *planner.Expander
	Synthesizer *synth.Synthesizer
	Validator   *synth.Validator
	Grants      domain.GrantRepository
	Engine      domain.ExecutionEngine
	Audit       domain.AuditRepository
	Database    string
	MaxAttempts int
}

func NewRunner(p RunnerParams, logger *slog.Logger) *Runner {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return &Runner{
		classifier:  p.Classifier,
		expander:    p.Expander,
		synthesizer: p.Synthesizer,
		validator:   p.Validator,
		grants:      p.Grants,
		engine:      p.Engine,
		audit:       p.Audit,
		database:    p.Database,
		maxAttempts: p.MaxAttempts,
		logger:      logger.With("component", "pipeline"),
	}
}

// Result is the terminal outcome of one question.
type Result struct {
	Status     string // domain.AuditExecuted, AuditDenied, or AuditFailed
	SQL        string
	Confidence float64
	Intent     *domain.QueryIntent
	Decision   *domain.AuthorizationDecision
	Rows       *domain.ResultSet
	Error      string // user-facing failure reason, failed status only
}

// Run takes a question through the full pipeline for one principal. It
// never returns a Go error: every outcome, including infrastructure
// failure, is a terminal Result so the caller always has something to
// render and the audit trail always has a row.
//
// Authorization is never skipped: no statement reaches the engine without
// an allowed decision, and admin principals still pass through the
// decision point.
func (r *Runner) Run(ctx context.Context, principal *domain.Principal, question string) *Result {
	start := time.Now()

	intent := r.classifier.Classify(ctx, question)

	elements, err := r.expander.Expand(ctx, question, intent)
	if err != nil {
		return r.fail(ctx, principal, question, nil, intent, start, err)
	}
	if len(elements) == 0 {
		return r.fail(ctx, principal, question, nil, intent, start,
			errors.New("no schema context matched the question"))
	}

	candidate, err := r.synthesize(ctx, question, intent, elements)
	if err != nil {
		return r.fail(ctx, principal, question, candidate, intent, start, err)
	}

	resources, err := sqlscan.Extract(candidate.Text)
	if err != nil {
		return r.fail(ctx, principal, question, candidate, intent, start, err)
	}
	candidate.Referenced = resources

	grant, err := r.loadGrant(ctx, principal)
	if err != nil {
		return r.fail(ctx, principal, question, candidate, intent, start, err)
	}

	decision := security.AuthorizeFor(principal, resources, grant, r.database)
	if !decision.Allowed {
		r.record(ctx, &domain.AuditEntry{
			PrincipalName: principal.Name,
			Question:      question,
			CandidateSQL:  &candidate.Text,
			Status:        domain.AuditDenied,
			ReasonCode:    &decision.ReasonCode,
			Confidence:    &candidate.Confidence,
			DurationMs:    durationMs(start),
		})
		r.logger.Info("query denied",
			"principal", principal.Name,
			"resource", decision.DeniedResource,
			"reason", decision.ReasonCode,
		)
		return &Result{
			Status:     domain.AuditDenied,
			SQL:        candidate.Text,
			Confidence: candidate.Confidence,
			Intent:     intent,
			Decision:   &decision,
		}
	}

	rows, err := r.engine.Execute(ctx, candidate.Text)
	if err != nil {
		return r.fail(ctx, principal, question, candidate, intent, start,
			domain.ErrCollaborator("execution engine", err))
	}

	r.record(ctx, &domain.AuditEntry{
		PrincipalName: principal.Name,
		Question:      question,
		CandidateSQL:  &candidate.Text,
		Status:        domain.AuditExecuted,
		Confidence:    &candidate.Confidence,
		DurationMs:    durationMs(start),
	})
	r.logger.Info("query executed",
		"principal", principal.Name,
		"confidence", candidate.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Result{
		Status:     domain.AuditExecuted,
		SQL:        candidate.Text,
		Confidence: candidate.Confidence,
		Intent:     intent,
		Decision:   &decision,
		Rows:       rows,
	}
}

// synthesize runs the synthesis/validation retry loop. Validation failures
// feed back into the next attempt; collaborator failures end the loop.
func (r *Runner) synthesize(ctx context.Context, question string, intent *domain.QueryIntent, elements []domain.SchemaElement) (*domain.CandidateSQL, error) {
	var lastErr error
	feedback := ""

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		candidate, err := r.synthesizer.Synthesize(ctx, question, intent, elements, feedback)
		if err != nil {
			var ce *domain.CollaboratorError
			if errors.As(err, &ce) {
				return nil, err
			}
			lastErr = err
			feedback = err.Error()
			continue
		}

		validated, err := r.validator.Validate(candidate.Text, elements)
		if err != nil {
			candidate.ValidationErrors = append(candidate.ValidationErrors, err.Error())
			var ve *domain.SQLValidationError
			if errors.As(err, &ve) && ve.Kind == domain.ValidationDisallowedStatement {
				// A write or DDL attempt is not a phrasing problem; no retry.
				return candidate, err
			}
			lastErr = err
			feedback = err.Error()
			r.logger.Debug("candidate rejected", "attempt", attempt, "error", err)
			continue
		}

		candidate.Text = validated
		return candidate, nil
	}

	return nil, domain.ErrRetryExhausted(r.maxAttempts, lastErr)
}

func (r *Runner) loadGrant(ctx context.Context, principal *domain.Principal) (*domain.PermissionGrant, error) {
	if principal.IsAdmin {
		return nil, nil // admin bypass happens at the decision point
	}
	return r.grants.LoadGrant(ctx, principal.ID)
}

// fail records and returns the failed terminal state.
func (r *Runner) fail(ctx context.Context, principal *domain.Principal, question string, candidate *domain.CandidateSQL, intent *domain.QueryIntent, start time.Time, cause error) *Result {
	msg := cause.Error()
	entry := &domain.AuditEntry{
		PrincipalName: principal.Name,
		Question:      question,
		Status:        domain.AuditFailed,
		ErrorMessage:  &msg,
		DurationMs:    durationMs(start),
	}
	if candidate != nil {
		entry.CandidateSQL = &candidate.Text
		entry.Confidence = &candidate.Confidence
	}
	r.record(ctx, entry)
	r.logger.Warn("query failed", "principal", principal.Name, "error", cause)

	res := &Result{Status: domain.AuditFailed, Intent: intent, Error: msg}
	if candidate != nil {
		res.SQL = candidate.Text
		res.Confidence = candidate.Confidence
	}
	return res
}

// record inserts an audit row. Audit failures are logged, never fatal: a
// broken audit store must not take query serving down with it.
func (r *Runner) record(ctx context.Context, entry *domain.AuditEntry) {
	if entry.ID == "" {
		entry.ID = domain.NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := r.audit.Insert(ctx, entry); err != nil {
		r.logger.Error("audit insert failed", "error", err)
	}
}

func durationMs(start time.Time) *int64 {
	ms := time.Since(start).Milliseconds()
	return &ms
}
