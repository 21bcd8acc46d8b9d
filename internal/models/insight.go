package models

type InsightType string

const (
	InsightGrowth     InsightType = "growth"
	InsightDecline    InsightType = "decline"
	InsightRanking    InsightType = "ranking"
	InsightAnomaly    InsightType = "anomaly"
	InsightComparison InsightType = "comparison"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type Magnitude string

const (
	MagnitudeSmall    Magnitude = "small"
	MagnitudeModerate Magnitude = "moderate"
	MagnitudeLarge    Magnitude = "large"
	MagnitudeDramatic Magnitude = "dramatic"
)

type Velocity string

const (
	VelocityAccelerating Velocity = "accelerating"
	VelocityDecelerating Velocity = "decelerating"
	VelocitySteady       Velocity = "steady"
	VelocityGradual      Velocity = "gradual"
)

// YearSpan is an inclusive span of years.
type YearSpan struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Insight is a detected, scored signal. Insights are created by the
// detector and never changed afterwards.
type Insight struct {
	Type             InsightType `json:"type"`
	Summary          string      `json:"summary"`
	Confidence       float64     `json:"confidence"`
	MetricName       string      `json:"metric_name"`
	CurrentValue     float64     `json:"current_value"`
	ChangePercentage *float64    `json:"change_percentage"`
	Direction        Direction   `json:"direction"`
	Sentiment        Sentiment   `json:"sentiment"`
	PreviousValue    *float64    `json:"previous_value,omitempty"`
	Region           string      `json:"region,omitempty"`
	Magnitude        Magnitude   `json:"magnitude,omitempty"`
	Velocity         Velocity    `json:"velocity,omitempty"`
	HumanImpact      string      `json:"human_impact,omitempty"`
	TimeRange        *YearSpan   `json:"time_range,omitempty"`
	Sources          []string    `json:"sources,omitempty"`
	DataPoints       int         `json:"data_points"`
	// Strength is the unsigned size of the signal (percent change, relative
	// gap or z-score) used to break confidence ties.
	Strength float64 `json:"strength"`
}

// Float is a helper for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}

func (i Insight) IsTrend() bool {
	return i.Type == InsightGrowth || i.Type == InsightDecline
}
