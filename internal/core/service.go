package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/portfolio-import/internal/analyze"
	"github.com/JonMunkholm/portfolio-import/internal/config"
	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/logging"
	"github.com/JonMunkholm/portfolio-import/internal/mapping"
	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/store"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
	"github.com/JonMunkholm/portfolio-import/internal/workbook"
)

var (
	// ErrSessionNotFound is returned for unknown or expired analysis sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrImportNotFound is returned for unknown background imports, including
	// finished ones older than ResultRetention.
	ErrImportNotFound = errors.New("import not found")

	// ErrEmptyWorkbook is returned when an uploaded file has no sheets.
	ErrEmptyWorkbook = errors.New("workbook has no sheets")
)

// ResultRetention is how long a finished background import stays queryable.
var ResultRetention = 5 * time.Minute

// Options tune a Service.
type Options struct {
	Policy  validate.Policy
	Analyze analyze.Config
	Mapping mapping.Config

	SessionTTL    time.Duration // how long an analysed workbook is kept
	ImportTimeout time.Duration // upper bound for one background import
	MaxConcurrent int           // imports executing at once
	MaxWait       time.Duration // wait for an import slot before ErrTooManyImports
}

// DefaultOptions returns the built-in thresholds and limits.
func DefaultOptions() Options {
	return Options{
		Policy:        validate.DefaultPolicy(),
		Analyze:       analyze.DefaultConfig(),
		Mapping:       mapping.DefaultConfig(),
		SessionTTL:    30 * time.Minute,
		ImportTimeout: 10 * time.Minute,
		MaxConcurrent: DefaultMaxConcurrentImports,
		MaxWait:       DefaultImportWait,
	}
}

// OptionsFromConfig builds Options from the import settings, loading the
// policy file when one is configured.
func OptionsFromConfig(cfg config.ImportConfig) (Options, error) {
	opts := DefaultOptions()

	if cfg.SampleRows > 0 {
		opts.Analyze.SampleRows = cfg.SampleRows
	}
	if cfg.SessionTTL > 0 {
		opts.SessionTTL = cfg.SessionTTL
	}
	if cfg.Timeout > 0 {
		opts.ImportTimeout = cfg.Timeout
	}
	opts.MaxConcurrent = cfg.MaxConcurrent
	opts.MaxWait = cfg.MaxWaitTime

	if cfg.PolicyFile != "" {
		p, err := validate.LoadPolicyFile(cfg.PolicyFile)
		if err != nil {
			return Options{}, err
		}
		opts.Policy = p
	}

	return opts, nil
}

// Service ties the import pipeline to a store. Uploaded workbooks are held in
// sessions so the caller can adjust mappings and validate repeatedly before
// importing.
type Service struct {
	store   store.Store
	opts    Options
	limiter *ImportLimiter

	mu       sync.RWMutex
	sessions map[string]*session
	imports  map[string]*activeImport
}

type session struct {
	ID        string
	FileName  string
	Workbook  workbook.Workbook
	Plans     []SheetPlan
	ExpiresAt time.Time
}

// NewService creates a Service over st.
func NewService(st store.Store, opts Options) *Service {
	return &Service{
		store:    st,
		opts:     opts,
		limiter:  NewImportLimiter(opts.MaxConcurrent, opts.MaxWait),
		sessions: make(map[string]*session),
		imports:  make(map[string]*activeImport),
	}
}

// Schemas returns every entity schema in dependency order.
func (s *Service) Schemas() []schema.EntitySchema {
	return schema.All()
}

// Policy returns the validation policy in force.
func (s *Service) Policy() validate.Policy {
	return s.opts.Policy
}

// Plan analyses every sheet of wb and suggests a mapping for each one with a
// detected entity type.
func Plan(wb workbook.Workbook, acfg analyze.Config, mcfg mapping.Config) []SheetPlan {
	analyses := analyze.AnalyzeWorkbook(wb, acfg)
	plans := make([]SheetPlan, 0, len(analyses))

	for _, a := range analyses {
		p := SheetPlan{Analysis: a}
		if es, ok := schema.Get(a.EntityType); ok && p.Enabled() {
			p.Suggestions = mapping.Suggest(a.Columns, es, mcfg)
			for _, f := range mapping.MissingRequired(p.Suggestions, es) {
				p.MissingRequired = append(p.MissingRequired, f.Name)
			}
		}
		plans = append(plans, p)
	}

	return plans
}

// SheetConfigs turns plans into validation configs. Sheets without a
// detected entity type are included but disabled.
func SheetConfigs(plans []SheetPlan) []validate.SheetConfig {
	out := make([]validate.SheetConfig, 0, len(plans))
	for _, p := range plans {
		cfg := validate.SheetConfig{
			SheetName:  p.Analysis.SheetName,
			EntityType: p.Analysis.EntityType,
			Enabled:    p.Enabled(),
		}
		for _, sg := range p.Suggestions {
			if !sg.Mapped() {
				continue
			}
			cfg.ColumnMappings = append(cfg.ColumnMappings, validate.ColumnMapping{
				SourceColumnIndex: sg.ColumnIndex,
				SourceColumnName:  sg.ColumnName,
				TargetField:       sg.TargetField,
			})
		}
		out = append(out, cfg)
	}
	return out
}

// Analyze decodes an uploaded workbook, plans every sheet and opens a session
// for it.
func (s *Service) Analyze(ctx context.Context, fileName string, r io.Reader) (*Analysis, error) {
	wb, err := workbook.Read(r, fileName)
	if err != nil {
		return nil, err
	}
	if len(wb.Sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	sess := &session{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Workbook:  wb,
		Plans:     Plan(wb, s.opts.Analyze, s.opts.Mapping),
		ExpiresAt: time.Now().Add(s.opts.SessionTTL),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.expireSession(sess.ID, s.opts.SessionTTL)

	enabled := 0
	for _, p := range sess.Plans {
		if p.Enabled() {
			enabled++
		}
	}
	logging.WithFields(ctx, "session_id", sess.ID, "file", fileName).
		Info("workbook analyzed", "sheets", len(sess.Plans), "enabled", enabled)

	return &Analysis{
		SessionID: sess.ID,
		FileName:  fileName,
		Sheets:    sess.Plans,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Session returns the analysis of an open session.
func (s *Service) Session(id string) (*Analysis, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return &Analysis{SessionID: sess.ID, FileName: sess.FileName, Sheets: sess.Plans, ExpiresAt: sess.ExpiresAt}, nil
}

// DiscardSession drops a session before it expires.
func (s *Service) DiscardSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Service) session(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || time.Now().After(sess.ExpiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) expireSession(id string, ttl time.Duration) {
	time.AfterFunc(ttl, func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	})
}

// configs resolves the sheet configs a request asks for.
func (s *Service) configs(sess *session, req ValidateRequest) ([]validate.SheetConfig, error) {
	if req.Configs != nil {
		return req.Configs, nil
	}
	if len(req.Overrides) == 0 {
		return SheetConfigs(sess.Plans), nil
	}

	plans := slices.Clone(sess.Plans)
	for name, overrides := range req.Overrides {
		i := slices.IndexFunc(plans, func(p SheetPlan) bool { return p.Analysis.SheetName == name })
		if i < 0 {
			return nil, fmt.Errorf("override: sheet %q not found in workbook", name)
		}

		es, ok := schema.Get(plans[i].Analysis.EntityType)
		if !ok {
			return nil, fmt.Errorf("override: sheet %q has unknown entity type %q", name, plans[i].Analysis.EntityType)
		}

		suggestions, err := mapping.ApplyOverrides(plans[i].Suggestions, overrides, es)
		if err != nil {
			return nil, fmt.Errorf("override: sheet %q: %w", name, err)
		}
		plans[i].Suggestions = suggestions
	}

	return SheetConfigs(plans), nil
}

// Validate runs the validation pipeline over a session against the records
// currently in the store. It never writes.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (validate.ImportValidationResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return validate.ImportValidationResult{}, err
	}

	configs, err := s.configs(sess, req)
	if err != nil {
		return validate.ImportValidationResult{}, err
	}

	return s.validate(ctx, sess, configs)
}

func (s *Service) validate(ctx context.Context, sess *session, configs []validate.SheetConfig) (validate.ImportValidationResult, error) {
	start := time.Now()

	existing, err := s.store.Snapshot(ctx)
	if err != nil {
		return validate.ImportValidationResult{}, fmt.Errorf("load existing records: %w", err)
	}

	res := validate.Validate(validate.Input{
		Sheets:   sess.Workbook.Sheets,
		Configs:  configs,
		Existing: existing,
		Policy:   s.opts.Policy,
	})

	logging.WithFields(ctx, "session_id", sess.ID).Info("workbook validated",
		"rows", res.TotalRows,
		"valid", res.ValidRows,
		"errors", res.ErrorRows,
		"duplicates", res.DuplicateRows,
		"can_proceed", res.CanProceed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, nil
}

// prepare validates an import request and refuses results that cannot proceed.
func (s *Service) prepare(ctx context.Context, req ImportRequest) (*session, validate.ImportValidationResult, error) {
	if _, ok := importer.ParseDuplicateStrategy(string(req.Duplicates)); !ok {
		return nil, validate.ImportValidationResult{}, fmt.Errorf("unknown duplicate strategy %q", req.Duplicates)
	}

	sess, err := s.session(req.SessionID)
	if err != nil {
		return nil, validate.ImportValidationResult{}, err
	}

	configs, err := s.configs(sess, req.ValidateRequest)
	if err != nil {
		return nil, validate.ImportValidationResult{}, err
	}

	res, err := s.validate(ctx, sess, configs)
	if err != nil {
		return nil, res, err
	}
	if !res.CanProceed {
		return sess, res, fmt.Errorf("%w: %d global errors, %d valid rows", importer.ErrCannotProceed, len(res.GlobalErrors), res.ValidRows)
	}

	return sess, res, nil
}

// RunImport validates a session and imports it, blocking until done. The
// validation result is returned even when the import is refused.
func (s *Service) RunImport(ctx context.Context, req ImportRequest) (*importer.Result, validate.ImportValidationResult, error) {
	sess, res, err := s.prepare(ctx, req)
	if err != nil {
		return nil, res, err
	}

	result, err := s.execute(ctx, uuid.NewString(), sess.FileName, res, req.options())
	return result, res, err
}

// execute writes res inside one store transaction and records the run.
// A cancelled import rolls back everything it wrote; rows that fail on their
// own do not.
func (s *Service) execute(ctx context.Context, importID, fileName string, res validate.ImportValidationResult, opts importer.Options) (*importer.Result, error) {
	logger := logging.WithFields(ctx, "import_id", importID, "file", fileName)
	if c, ok := ClientFromContext(ctx); ok {
		logger = logger.With("client_ip", c.IP, "user_agent", c.UserAgent)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	started := time.Now()
	opts.ImportID = importID

	var result *importer.Result
	err := s.store.InTx(ctx, func(tx store.Store) error {
		var err error
		result, err = importer.NewExecutor(tx, logger).Execute(ctx, res, opts)
		return err
	})

	if result != nil {
		// The run is recorded even when ctx is done.
		run := store.RunFromResult(fileName, result, started)
		if rerr := s.store.RecordRun(context.WithoutCancel(ctx), run); rerr != nil {
			logger.Error("failed to record import run", "error", rerr)
		}
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, fmt.Errorf("import cancelled: %w", err)
		}
		return result, fmt.Errorf("import %s: %w", importID, err)
	}

	return result, nil
}

// History returns the most recent import runs.
func (s *Service) History(ctx context.Context, limit int) ([]store.Run, error) {
	return s.store.Runs(ctx, limit)
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until no import is executing or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
