// Command trialmind runs the evidence-synthesis engine against a study:
// it executes the domain workers as a pipeline and prints the
// synthesized answer as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/trialmind/trialmind/infrastructure/llm"
	"github.com/trialmind/trialmind/infrastructure/middleware"
	"github.com/trialmind/trialmind/infrastructure/store"
	"github.com/trialmind/trialmind/infrastructure/workers"
	"github.com/trialmind/trialmind/internal/config"
	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/engine"
	"github.com/trialmind/trialmind/internal/ports"
	"github.com/trialmind/trialmind/internal/prompts"
	"github.com/trialmind/trialmind/internal/synthesis"
)

func main() {
	var (
		configPath    = flag.String("config", "trialmind.yaml", "path to the engine configuration file")
		query         = flag.String("query", "", "free-text question driving display selection")
		synthesisKind = flag.String("kind", "summary", "synthesis kind: summary, readiness, safety-brief, deviation-brief, risk-brief, dashboard")
		patientID     = flag.String("patient", "", "optional patient scope")
		demo          = flag.Bool("demo", false, "seed the in-memory store with demo data and skip the generation backend")
	)
	flag.Parse()

	if err := run(*configPath, *query, *synthesisKind, *patientID, *demo); err != nil {
		fmt.Fprintf(os.Stderr, "trialmind: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, query, synthesisKind, patientID string, demo bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	loader, err := prompts.NewLoader()
	if err != nil {
		return fmt.Errorf("loading prompt templates: %w", err)
	}

	var generator ports.Generator
	if !demo {
		generator, err = buildGenerator(cfg)
		if err != nil {
			return err
		}
		logger.Info("generation backend ready",
			zap.String("provider", cfg.Provider.Name),
			zap.String("model", generator.GetModel()))
	}

	memory := store.NewMemory()
	if demo {
		seedDemoData(memory, cfg.Study.ID)
	}
	searchers := []ports.LiteratureSearcher{
		store.NewStaticSearcher("local", demoCitations()),
	}

	metrics := middleware.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	dispatcher := engine.NewDispatcher(
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
	)
	if err := registerWorkers(dispatcher, cfg, memory, searchers, generator, loader, logger); err != nil {
		return err
	}

	synthesizer := synthesis.NewSynthesizer(
		synthesis.WithGenerator(generator),
		synthesis.WithTemplates(loader),
		synthesis.WithLogger(logger),
		synthesis.WithMetrics(metrics),
	)
	if err := dispatcher.Register(synthesis.NewWorker(synthesizer)); err != nil {
		return fmt.Errorf("registering synthesis worker: %w", err)
	}

	ec := domain.NewExecutionContext(uuid.NewString(), cfg.Study.ID)
	ec.Query = query
	ec.PatientID = patientID
	ec.Deadline = cfg.Deadline()
	ec.MaxWorkerCalls = cfg.Engine.MaxWorkerCalls
	ec.RequireProvenance = cfg.Engine.RequireProvenance
	ec.Parameters["synthesis_kind"] = synthesisKind

	stages := [][]domain.WorkerKind{
		cfg.EnabledWorkers(),
		{domain.WorkerSynthesis},
	}

	logger.Info("running pipeline",
		zap.String("request_id", ec.RequestID),
		zap.String("study_id", ec.StudyID),
		zap.String("synthesis_kind", synthesisKind))

	results := dispatcher.RunPipeline(context.Background(), stages, ec)
	answer, ok := results[domain.WorkerSynthesis]
	if !ok {
		return fmt.Errorf("pipeline produced no synthesis result")
	}

	encoded, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func buildGenerator(cfg *config.Config) (ports.Generator, error) {
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	mws := []llm.Middleware{
		llm.MetricsMiddleware(middleware.NewPrometheusMetrics(prometheus.NewRegistry())),
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		mws = append(mws, llm.RateLimitMiddleware(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst))
	}
	if cfg.Retry.MaxAttempts > 0 {
		mws = append(mws, llm.RetryMiddleware(cfg.Retry.MaxAttempts,
			time.Duration(cfg.Retry.InitialWaitMs)*time.Millisecond,
			time.Duration(cfg.Retry.MaxWaitMs)*time.Millisecond))
	}

	client, err := llm.NewClient(cfg.Provider.Name, llm.ClientConfig{
		APIKey:     apiKey,
		Model:      cfg.Provider.Model,
		Middleware: mws,
	})
	if err != nil {
		return nil, fmt.Errorf("building %s client: %w", cfg.Provider.Name, err)
	}
	return client, nil
}

func registerWorkers(
	dispatcher *engine.Dispatcher,
	cfg *config.Config,
	memory *store.Memory,
	searchers []ports.LiteratureSearcher,
	generator ports.Generator,
	loader ports.TemplateLoader,
	logger *zap.Logger,
) error {
	available := map[domain.WorkerKind]ports.Worker{
		domain.WorkerProtocol:   workers.NewProtocolWorker(memory, memory, logger),
		domain.WorkerData:       workers.NewDataWorker(memory, logger),
		domain.WorkerLiterature: workers.NewLiteratureWorker(searchers, generator, loader, logger),
		domain.WorkerRegistry:   workers.NewRegistryWorker(memory, logger),
		domain.WorkerCompliance: workers.NewComplianceWorker(memory, memory, logger),
		domain.WorkerSafety:     workers.NewSafetyWorker(memory, generator, loader, logger),
	}
	for _, kind := range cfg.EnabledWorkers() {
		worker, ok := available[kind]
		if !ok {
			return fmt.Errorf("no worker implementation for kind %s", kind)
		}
		if err := dispatcher.Register(worker); err != nil {
			return fmt.Errorf("registering %s worker: %w", kind, err)
		}
	}
	return nil
}

func seedDemoData(memory *store.Memory, studyID string) {
	day := func(offset int) time.Time {
		return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}

	memory.PutProtocol(&ports.Protocol{
		StudyID:             studyID,
		Version:             "2.1",
		VisitWindowDays:     7,
		RequiredAssessments: []string{"ECG", "CBC", "vitals"},
	})
	memory.PutMetrics(studyID, &ports.StudyMetrics{
		EnrolledCount: 24,
		TargetCount:   30,
		PatientCount:  24,
		HazardRatio:   1.4,
		SurvivalCurve: []ports.SurvivalPoint{
			{Time: 0, Probability: 1.0},
			{Time: 30, Probability: 0.95},
			{Time: 60, Probability: 0.9},
			{Time: 90, Probability: 0.86},
		},
	})
	memory.AddVisits(studyID,
		ports.VisitRecord{PatientID: "P-001", VisitID: "V1", ScheduledDate: day(0), ActualDate: day(1), Assessments: []string{"ECG", "CBC", "vitals"}},
		ports.VisitRecord{PatientID: "P-001", VisitID: "V2", ScheduledDate: day(14), ActualDate: day(24), Assessments: []string{"ECG", "vitals"}},
	)
	memory.AddAdverseEvents(studyID,
		ports.AdverseEvent{PatientID: "P-001", Term: "headache", Grade: 1, OnsetDate: day(15)},
		ports.AdverseEvent{PatientID: "P-002", Term: "nausea", Grade: 2, OnsetDate: day(20)},
	)
	memory.PutRegistryRecord(studyID, &ports.RegistryRecord{
		RegistryID: "NCT01234567",
		Status:     "recruiting",
		SiteCount:  12,
		Phase:      "III",
	})
}

func demoCitations() []ports.Citation {
	return []ports.Citation{
		{Reference: "PMID:38012345", Title: "Survival outcomes under extended visit windows", Relevance: 0.85},
		{Reference: "PMID:37098765", Title: "Protocol deviation rates in phase III oncology trials", Relevance: 0.8},
		{Reference: "PMID:36054321", Title: "Adverse event monitoring in adaptive designs", Relevance: 0.7},
	}
}
