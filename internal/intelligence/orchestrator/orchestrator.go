// Package orchestrator runs one request through the pipeline: analyze,
// retrieve, detect, decide the output mode, narrate when telling a story,
// pick a template and assemble the response plan.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/common/metrics"
	"narrative-workers/internal/common/observability"
	"narrative-workers/internal/intelligence/analyzer"
	"narrative-workers/internal/intelligence/detector"
	"narrative-workers/internal/intelligence/narrator"
	"narrative-workers/internal/intelligence/tagger"
	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/models"
	"narrative-workers/internal/render"
	"narrative-workers/internal/retrieval"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrTemporarilyUnavailable reports a retriever failure other than a timeout.
var ErrTemporarilyUnavailable = errors.New("TEMPORARILY_UNAVAILABLE")

// NoDataSummary is the summary of a response with no matching records.
const NoDataSummary = "no matching data found for this query"

const (
	defaultRetrievalTimeout = 5 * time.Second
	defaultMaxRecords       = 500
)

// Request is one question to answer.
type Request struct {
	Query          string `json:"query"`
	DomainHint     string `json:"domain_hint,omitempty"`
	ForceMode      string `json:"force_mode,omitempty"`
	IncludeImage   bool   `json:"include_image,omitempty"`
	SeparateImages bool   `json:"separate_images,omitempty"`
}

type Orchestrator struct {
	vocab     *vocabulary.Vocabulary
	analyzer  *analyzer.Analyzer
	retriever retrieval.Retriever
	detector  *detector.Detector
	narrator  *narrator.Narrator
	tagger    tagger.Tagger
	engine    *render.Engine
	obs       *observability.Observability
	logger    logger.Logger

	timeout        time.Duration
	maxRecords     int
	separateImages bool
	newID          func() string
}

// Option configures New.
type Option func(*Orchestrator)

// WithTagger classifies the domain of the retrieved records when the query
// carries no domain hint.
func WithTagger(t tagger.Tagger) Option {
	return func(o *Orchestrator) { o.tagger = t }
}

// WithRenderEngine enables image rendering for requests with IncludeImage.
func WithRenderEngine(e *render.Engine) Option {
	return func(o *Orchestrator) { o.engine = e }
}

func WithObservability(obs *observability.Observability) Option {
	return func(o *Orchestrator) { o.obs = obs }
}

func WithRetrievalTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithMaxRecords(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRecords = n
		}
	}
}

// WithSeparateImages makes carousel the default story template.
func WithSeparateImages(separate bool) Option {
	return func(o *Orchestrator) { o.separateImages = separate }
}

func New(vocab *vocabulary.Vocabulary, retriever retrieval.Retriever, log logger.Logger, opts ...Option) *Orchestrator {
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	o := &Orchestrator{
		vocab:      vocab,
		analyzer:   analyzer.New(vocab, log),
		retriever:  retriever,
		detector:   detector.New(vocab, log),
		narrator:   narrator.New(vocab, log),
		logger:     logger.ForComponent(log, "orchestrator"),
		timeout:    defaultRetrievalTimeout,
		maxRecords: defaultMaxRecords,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyzer exposes the query analyzer for callers that only need analysis.
func (o *Orchestrator) Analyzer() *analyzer.Analyzer {
	return o.analyzer
}

// Run answers req. The only errors are analyzer.ErrEmptyQuery,
// ErrTemporarilyUnavailable and cancellation of ctx; missing data and short
// histories degrade the plan instead.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.ResponsePlan, error) {
	start := time.Now()
	ctx, span := o.obs.StartSpan(ctx, "pipeline.run")
	defer span.End()

	plan := &models.ResponsePlan{RequestID: o.newID()}
	log := o.logger.With(map[string]interface{}{"requestId": plan.RequestID})

	// analyze
	stageStart := time.Now()
	analysis, err := o.analyzer.Analyze(req.Query, req.DomainHint)
	o.obs.RecordStage(ctx, "analyze", time.Since(stageStart))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	plan.Analysis = analysis
	plan.Domain = analysis.DomainHint
	plan.ReasoningNotes = append(plan.ReasoningNotes,
		"Intent detected: "+string(analysis.Intent),
		"Domain hint: "+orNone(analysis.DomainHint),
		fmt.Sprintf("Requires historical: %t", analysis.RequiresHistorical),
	)
	span.SetAttributes(attribute.String("intent", string(analysis.Intent)))

	// retrieve
	records, timedOut, err := o.retrieve(ctx, analysis)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Error("retrieval failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	if timedOut {
		plan.ReasoningNotes = append(plan.ReasoningNotes, "Retrieval timed out")
	}
	if len(records) == 0 {
		o.noData(plan)
		o.finish(ctx, plan, start)
		log.Info("no matching data", map[string]interface{}{"query": req.Query})
		return plan, nil
	}
	plan.Records = records
	plan.SourcesUsed = retrieval.Sources(records)
	plan.ContextSummary = fmt.Sprintf("Found %d relevant data points from %d sources", len(records), len(plan.SourcesUsed))
	plan.ReasoningNotes = append(plan.ReasoningNotes, plan.ContextSummary)

	if plan.Domain == "" && o.tagger != nil {
		if domain, err := o.tagger.ClassifyDomain(ctx, records); err != nil {
			log.Warn("domain classification failed", map[string]interface{}{"error": err.Error()})
		} else {
			plan.Domain = domain
		}
	}

	// detect
	stageStart = time.Now()
	plan.Insights = o.detector.Detect(records, analysis)
	plan.Primary = o.detector.SelectPrimary(plan.Insights, analysis)
	o.obs.RecordStage(ctx, "detect", time.Since(stageStart))
	for _, ins := range plan.Insights {
		metrics.InsightsDetected.WithLabelValues(string(ins.Type)).Inc()
	}
	plan.ReasoningNotes = append(plan.ReasoningNotes, fmt.Sprintf("Detected %d insights", len(plan.Insights)))
	if plan.Primary != nil {
		plan.Confidence = plan.Primary.Confidence
		plan.Summary = plan.Primary.Summary
		plan.ReasoningNotes = append(plan.ReasoningNotes, "Primary insight: "+string(plan.Primary.Type))
	} else {
		o.snapshot(plan, records)
	}

	// decide and narrate
	mode, reason := o.decideMode(req.ForceMode, analysis, plan.Primary)
	if mode == models.OutputStory {
		stageStart = time.Now()
		story, err := o.narrator.Narrate(*plan.Primary, records, analysis)
		o.obs.RecordStage(ctx, "narrate", time.Since(stageStart))
		switch {
		case err == nil:
			plan.Story = story
		case errors.Is(err, narrator.ErrInsufficientHistory):
			mode, reason = models.OutputData, "insufficient_history"
		default:
			return nil, err
		}
	}
	if reason != "" {
		metrics.StoryDowngrades.WithLabelValues(reason).Inc()
		plan.ReasoningNotes = append(plan.ReasoningNotes, "Story downgraded to data: "+strings.ReplaceAll(reason, "_", " "))
	}
	plan.OutputMode = mode
	plan.ReasoningNotes = append(plan.ReasoningNotes, "Output mode: "+string(mode))

	var primaryType models.InsightType
	if plan.Primary != nil {
		primaryType = plan.Primary.Type
	}
	plan.TemplateID = SelectTemplate(mode, analysis.Intent, primaryType, req.SeparateImages || o.separateImages)
	plan.ReasoningNotes = append(plan.ReasoningNotes, "Template: "+plan.TemplateID)

	if req.IncludeImage {
		o.renderImage(ctx, plan, log)
	}

	o.finish(ctx, plan, start)
	log.Info("pipeline completed", map[string]interface{}{
		"intent":     analysis.Intent,
		"outputMode": plan.OutputMode,
		"template":   plan.TemplateID,
		"insights":   len(plan.Insights),
		"confidence": plan.Confidence,
	})
	return plan, nil
}

// retrieve runs the retriever under the retrieval timeout. A timeout reads
// as no data; any other failure is ErrTemporarilyUnavailable.
func (o *Orchestrator) retrieve(ctx context.Context, analysis *models.QueryAnalysis) ([]models.DataRecord, bool, error) {
	if o.retriever == nil {
		return nil, false, nil
	}
	stageStart := time.Now()
	rctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// buffered so a retriever that ignores rctx can finish after we stop waiting
	done := make(chan retrieved, 1)
	q := retrieval.QueryFromAnalysis(analysis, o.maxRecords)
	go func() {
		records, err := o.retriever.Query(rctx, q)
		done <- retrieved{records: records, err: err}
	}()

	var res retrieved
	select {
	case res = <-done:
	case <-rctx.Done():
		res = retrieved{err: rctx.Err()}
	}
	o.obs.RecordStage(ctx, "retrieve", time.Since(stageStart))

	if res.err == nil {
		return res.records, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	if errors.Is(res.err, context.DeadlineExceeded) {
		o.logger.Warn("retrieval timed out", map[string]interface{}{"timeout": o.timeout.String()})
		return nil, true, nil
	}
	return nil, false, fmt.Errorf("%w: %v", ErrTemporarilyUnavailable, res.err)
}

type retrieved struct {
	records []models.DataRecord
	err     error
}

// decideMode applies the output rule. The reason is set when a story was
// wanted but data is served.
func (o *Orchestrator) decideMode(force string, analysis *models.QueryAnalysis, primary *models.Insight) (models.OutputMode, string) {
	if mode, ok := models.ParseOutputMode(force); ok {
		if mode == models.OutputStory && primary == nil {
			return models.OutputData, "no_insight"
		}
		return mode, ""
	}
	if !analysis.RequiresHistorical {
		return models.OutputData, ""
	}
	if primary == nil {
		return models.OutputData, "no_insight"
	}
	if primary.Confidence < o.vocab.Thresholds().StoryConfidence {
		return models.OutputData, "low_confidence"
	}
	return models.OutputStory, ""
}

func (o *Orchestrator) noData(plan *models.ResponsePlan) {
	metrics.NoDataResponses.Inc()
	plan.Success = true
	plan.OutputMode = models.OutputData
	plan.TemplateID = models.TemplateHeroStat
	plan.Insights = []models.Insight{}
	plan.SourcesUsed = []string{}
	plan.Confidence = 0
	plan.Summary = NoDataSummary
	plan.Suggestions = o.vocab.Suggestions(plan.Domain)
	plan.ReasoningNotes = append(plan.ReasoningNotes, "No matching data found")
}

// snapshot answers from the latest retrieved record when nothing could be
// detected. Confidence stays 0.
func (o *Orchestrator) snapshot(plan *models.ResponsePlan, records []models.DataRecord) {
	latest := records[0]
	for _, r := range records[1:] {
		if r.YearValue() > latest.YearValue() {
			latest = r
		}
	}
	plan.Snapshot = &latest

	label := detector.CleanMetric(latest.MetricName)
	if latest.Region != "" {
		label += " in " + latest.Region
	}
	plan.Summary = label + " was " + strconv.FormatFloat(latest.Value, 'f', -1, 64)
	if latest.HasYear() {
		plan.Summary += fmt.Sprintf(" in %d", latest.YearValue())
	}
	plan.ContextSummary += "; showing the latest available value"
	plan.ReasoningNotes = append(plan.ReasoningNotes, "No insight detected, using latest snapshot")
}

func (o *Orchestrator) renderImage(ctx context.Context, plan *models.ResponsePlan, log logger.Logger) {
	if o.engine == nil {
		plan.ReasoningNotes = append(plan.ReasoningNotes, "Image rendering is not configured")
		return
	}
	payload, err := render.BuildPayload(plan)
	if err == nil {
		plan.ImageID, err = o.engine.Render(ctx, plan.TemplateID, payload)
	}
	if err != nil {
		log.Warn("image rendering skipped", map[string]interface{}{
			"template": plan.TemplateID,
			"error":    err.Error(),
		})
		plan.ReasoningNotes = append(plan.ReasoningNotes, "Image rendering failed: "+err.Error())
	}
}

func (o *Orchestrator) finish(ctx context.Context, plan *models.ResponsePlan, start time.Time) {
	plan.Success = true
	elapsed := time.Since(start)
	plan.ProcessingTimeMs = elapsed.Milliseconds()
	metrics.PipelineRuns.WithLabelValues(string(plan.OutputMode), plan.TemplateID).Inc()
	metrics.PipelineDuration.Observe(elapsed.Seconds())
	o.obs.RecordStage(ctx, "total", elapsed)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
