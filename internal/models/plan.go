package models

// Visual templates the render layer understands.
const (
	TemplateStoryFiveFrame = "story_five_frame"
	TemplateStoryCarousel  = "story_carousel"
	TemplateTrendLine      = "trend_line"
	TemplateRankingBar     = "ranking_bar"
	TemplateVersus         = "versus"
	TemplateHeroStat       = "hero_stat"
)

// ResponsePlan is everything the pipeline decided for one request.
type ResponsePlan struct {
	RequestID        string
	Success          bool
	Analysis         *QueryAnalysis
	Records          []DataRecord // retrieved rows behind the insights; not in the public response
	Insights         []Insight
	Primary          *Insight
	Snapshot         *DataRecord // latest record, set only when no insight was detected
	Story            *NarrativeStory
	OutputMode       OutputMode
	TemplateID       string
	SourcesUsed      []string
	Confidence       float64
	Summary          string
	ContextSummary   string
	ReasoningNotes   []string
	Domain           string
	ProcessingTimeMs int64
	ImageID          string
	Suggestions      []string
}

// Response is the public response shape other layers depend on.
type Response struct {
	Success            bool             `json:"success"`
	RequestID          string           `json:"request_id"`
	Intent             Intent           `json:"intent"`
	IntentConfidence   float64          `json:"intent_confidence"`
	Topics             []string         `json:"topics"`
	Locations          []string         `json:"locations"`
	TimeReferences     []string         `json:"time_references"`
	DomainHint         *string          `json:"domain_hint"`
	RequiresHistorical bool             `json:"requires_historical"`
	PreferredOutput    OutputMode       `json:"preferred_output"`
	OutputMode         OutputMode       `json:"output_mode"`
	TemplateUsed       string           `json:"template_used"`
	Insights           []Insight        `json:"insights"`
	PrimaryInsight     *Insight         `json:"primary_insight"`
	NarrativeTitle     string           `json:"narrative_title,omitempty"`
	NarrativeSubtitle  string           `json:"narrative_subtitle,omitempty"`
	NarrativeFrames    []NarrativeFrame `json:"narrative_frames,omitempty"`
	SourcesUsed        []string         `json:"sources_used"`
	Confidence         float64          `json:"confidence"`
	Summary            string           `json:"summary,omitempty"`
	ContextSummary     string           `json:"context_summary,omitempty"`
	ReasoningNotes     []string         `json:"reasoning_notes,omitempty"`
	Domain             string           `json:"domain,omitempty"`
	ProcessingTimeMs   int64            `json:"processing_time_ms"`
	ImageID            string           `json:"image_id,omitempty"`
	Suggestions        []string         `json:"suggestions,omitempty"`
}

// Response flattens the plan into the public shape. Collections are never
// null in the output.
func (p *ResponsePlan) Response() Response {
	r := Response{
		Success:          p.Success,
		RequestID:        p.RequestID,
		OutputMode:       p.OutputMode,
		TemplateUsed:     p.TemplateID,
		Insights:         nonNilInsights(p.Insights),
		PrimaryInsight:   p.Primary,
		SourcesUsed:      nonNil(p.SourcesUsed),
		Confidence:       p.Confidence,
		Summary:          p.Summary,
		ContextSummary:   p.ContextSummary,
		ReasoningNotes:   p.ReasoningNotes,
		Domain:           p.Domain,
		ProcessingTimeMs: p.ProcessingTimeMs,
		ImageID:          p.ImageID,
		Suggestions:      p.Suggestions,
		Topics:           []string{},
		Locations:        []string{},
		TimeReferences:   []string{},
	}

	if a := p.Analysis; a != nil {
		r.Intent = a.Intent
		r.IntentConfidence = a.IntentConfidence
		r.Topics = nonNil(a.Topics)
		r.Locations = nonNil(a.Locations)
		r.TimeReferences = nonNil(a.TimeReferences)
		r.RequiresHistorical = a.RequiresHistorical
		r.PreferredOutput = a.PreferredOutput
		if a.DomainHint != "" {
			hint := a.DomainHint
			r.DomainHint = &hint
		}
	}

	if s := p.Story; s != nil {
		r.NarrativeTitle = s.Title
		r.NarrativeSubtitle = s.Subtitle
		r.NarrativeFrames = s.Frames
	}
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInsights(s []Insight) []Insight {
	if s == nil {
		return []Insight{}
	}
	return s
}
