package models

type FrameType string

const (
	FrameContext     FrameType = "context"
	FrameChange      FrameType = "change"
	FrameEvidence    FrameType = "evidence"
	FrameConsequence FrameType = "consequence"
	FrameImplication FrameType = "implication"
)

// FrameOrder is the fixed order of the five story frames.
var FrameOrder = [5]FrameType{
	FrameContext,
	FrameChange,
	FrameEvidence,
	FrameConsequence,
	FrameImplication,
}

type NarrativeFrame struct {
	Type           FrameType `json:"type"`
	Headline       string    `json:"headline"`
	BodyText       string    `json:"body_text"`
	KeyMetric      string    `json:"key_metric,omitempty"`
	KeyMetricLabel string    `json:"key_metric_label,omitempty"`
	VisualHint     string    `json:"visual_hint,omitempty"`
	Emphasis       string    `json:"emphasis,omitempty"`
}

type NarrativeStory struct {
	Title             string           `json:"title"`
	Subtitle          string           `json:"subtitle"`
	Frames            []NarrativeFrame `json:"frames"`
	Domain            string           `json:"domain,omitempty"`
	Sentiment         Sentiment        `json:"sentiment"`
	TimePeriod        string           `json:"time_period"`
	SourceAttribution string           `json:"source_attribution,omitempty"`
	Confidence        float64          `json:"confidence"`
}
