package narrator

import (
	"testing"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/intelligence/detector"
	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(metric, region string, year int, value float64) models.DataRecord {
	return models.DataRecord{MetricName: metric, Region: region, Year: models.YearOf(year), Value: value, Source: "census"}
}

func literacySeries() []models.DataRecord {
	return []models.DataRecord{
		rec("literacy_rate", "Telangana", 2015, 66.5),
		rec("literacy_rate", "Telangana", 2019, 78.4),
		rec("literacy_rate", "Telangana", 2023, 89.5),
		rec("literacy_rate", "Kerala", 2023, 96.2),
		rec("dropout_rate", "Telangana", 2023, 12.0),
	}
}

func literacyAnalysis() *models.QueryAnalysis {
	return &models.QueryAnalysis{
		Intent:     models.IntentTrend,
		Topics:     []string{"literacy"},
		Locations:  []string{"Telangana"},
		DomainHint: "education",
	}
}

func primaryFor(t *testing.T, records []models.DataRecord, analysis *models.QueryAnalysis) models.Insight {
	d := detector.New(vocabulary.Default(), logger.NewTestLogger(t))
	p := d.SelectPrimary(d.Detect(records, analysis), analysis)
	require.NotNil(t, p)
	return *p
}

func TestNarrate_GrowthStory(t *testing.T) {
	n := New(vocabulary.Default(), logger.NewTestLogger(t))
	records := literacySeries()[:3]
	analysis := literacyAnalysis()

	story, err := n.Narrate(primaryFor(t, records, analysis), records, analysis)
	require.NoError(t, err)

	assert.Equal(t, "Telangana's Literacy Revolution", story.Title)
	assert.Equal(t, "An Education story from 2015 to 2023", story.Subtitle)
	assert.Equal(t, "2015 - 2023", story.TimePeriod)
	assert.Equal(t, "Source: census", story.SourceAttribution)
	assert.Equal(t, models.SentimentPositive, story.Sentiment)
	assert.Equal(t, "education", story.Domain)
	assert.InDelta(t, 0.85, story.Confidence, 1e-9)

	require.Len(t, story.Frames, 5)
	for i, f := range story.Frames {
		assert.Equal(t, models.FrameOrder[i], f.Type)
		assert.NotEmpty(t, f.VisualHint)
		assert.NotEmpty(t, f.Emphasis)
	}

	ctx := story.Frames[0]
	assert.Equal(t, "Where We Started", ctx.Headline)
	assert.Equal(t, "In 2015, Literacy Rate in Telangana stood at 66.5%.", ctx.BodyText)
	assert.Equal(t, "66.5%", ctx.KeyMetric)

	change := story.Frames[1]
	assert.Equal(t, "What Changed", change.Headline)
	assert.Equal(t, "Over 8 years it rose 34.6% to reach 89.5% by 2023.", change.BodyText)
	assert.Equal(t, "+34.6%", change.KeyMetric)

	evidence := story.Frames[2]
	assert.Equal(t, "The Proof", evidence.Headline)
	assert.Equal(t, "Along the way: 78.4% (2019). Data from census.", evidence.BodyText)

	consequence := story.Frames[3]
	assert.Equal(t, "What It Means", consequence.Headline)
	assert.Equal(t, "Literacy Rate has dramatically improved by 34.6%. This represents progress worth celebrating.", consequence.BodyText)

	implication := story.Frames[4]
	assert.Equal(t, "What's Next", implication.Headline)
	assert.Equal(t, "If current trends continue, literacy rate could reach new heights. Sustained effort will be key.", implication.BodyText)
	assert.Empty(t, implication.KeyMetric)
}

func TestNarrate_DeclineOfPositiveMetric(t *testing.T) {
	n := New(vocabulary.Default(), logger.NewTestLogger(t))
	records := []models.DataRecord{
		rec("enrollment_rate", "Bihar", 2016, 80),
		rec("enrollment_rate", "Bihar", 2022, 72),
	}
	analysis := &models.QueryAnalysis{Intent: models.IntentTrend}

	story, err := n.Narrate(primaryFor(t, records, analysis), records, analysis)
	require.NoError(t, err)

	assert.Equal(t, "Bihar's Enrollment Rate Decline", story.Title)
	assert.Equal(t, "A data story from 2016 to 2022", story.Subtitle)
	assert.Equal(t, "What Slipped", story.Frames[1].Headline)
	assert.Equal(t, "Why It Matters", story.Frames[3].Headline)
	assert.Contains(t, story.Frames[3].BodyText, "This trend requires attention and action.")
	assert.Equal(t, "Reversing this trend in enrollment rate will require focused intervention and resources.", story.Frames[4].BodyText)
	assert.Equal(t, "The record covers 2016 and 2022. Data from census.", story.Frames[2].BodyText)
}

func TestNarrate_RisingInverseMetric(t *testing.T) {
	n := New(vocabulary.Default(), logger.NewTestLogger(t))
	records := []models.DataRecord{
		rec("crime_count", "", 2018, 100),
		rec("crime_count", "", 2022, 130),
	}
	analysis := &models.QueryAnalysis{Intent: models.IntentTrend, Topics: []string{"crime"}}

	story, err := n.Narrate(primaryFor(t, records, analysis), records, analysis)
	require.NoError(t, err)

	assert.Equal(t, "The Crime Decline", story.Title)
	assert.Equal(t, "Addressing the rise in crime count should be a priority for policymakers.", story.Frames[4].BodyText)
	assert.Equal(t, "In 2018, Crime Count stood at 100.0.", story.Frames[0].BodyText)
}

func TestNarrate_InsufficientHistory(t *testing.T) {
	n := New(vocabulary.Default(), logger.NewTestLogger(t))
	insight := models.Insight{Type: models.InsightRanking, MetricName: "literacy_rate", Region: "Kerala"}

	_, err := n.Narrate(insight, literacySeries(), literacyAnalysis())
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = n.Narrate(insight, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestNarrate_NonTrendInsightUsesSeries(t *testing.T) {
	n := New(vocabulary.Default(), logger.NewTestLogger(t))
	insight := models.Insight{
		Type:       models.InsightRanking,
		MetricName: "literacy_rate",
		Region:     "Telangana",
		Confidence: 0.7,
	}

	story, err := n.Narrate(insight, literacySeries(), literacyAnalysis())
	require.NoError(t, err)

	assert.Equal(t, models.SentimentPositive, story.Sentiment)
	assert.Equal(t, "+34.6%", story.Frames[1].KeyMetric)
	assert.Equal(t, "Literacy Rate moved from 66.5% to 89.5%. This represents progress worth celebrating.", story.Frames[3].BodyText)
}

func TestNarrate_Deterministic(t *testing.T) {
	n := New(vocabulary.Default(), logger.NewTestLogger(t))
	records := literacySeries()
	analysis := literacyAnalysis()
	insight := primaryFor(t, records, analysis)

	a, err := n.Narrate(insight, records, analysis)
	require.NoError(t, err)
	b, err := n.Narrate(insight, records, analysis)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestUnitFor(t *testing.T) {
	assert.Equal(t, "mm", unitFor("rainfall", []models.DataRecord{{Unit: "mm"}}))
	assert.Equal(t, "%", unitFor("literacy_rate", nil))
	assert.Equal(t, "", unitFor("hospital_beds", nil))
	assert.Equal(t, "12.0 mm", formatValue(12, "mm"))
}

func TestArticle(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"Education", "An"},
		{"Agriculture", "An"},
		{"Health", "A"},
		{"data", "A"},
		{"", "A"},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, article(tt.word))
		})
	}
}
