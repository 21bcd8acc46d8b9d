package detector

import (
	"math/rand"
	"testing"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fixtures
// ==========================

func createTestDetector(t *testing.T) *Detector {
	return New(vocabulary.Default(), logger.NewTestLogger(t))
}

func rec(metric, region string, year int, value float64, source string) models.DataRecord {
	r := models.DataRecord{MetricName: metric, Region: region, Value: value, Source: source}
	if year != 0 {
		r.Year = models.YearOf(year)
	}
	return r
}

func telanganaLiteracy() []models.DataRecord {
	return []models.DataRecord{
		rec("literacy_rate", "Telangana", 2015, 66.5, "census"),
		rec("literacy_rate", "Telangana", 2017, 72.0, "census"),
		rec("literacy_rate", "Telangana", 2019, 78.4, "census"),
		rec("literacy_rate", "Telangana", 2021, 84.1, "census"),
		rec("literacy_rate", "Telangana", 2023, 89.5, "census"),
	}
}

func districtLiteracy() []models.DataRecord {
	return []models.DataRecord{
		rec("literacy_rate", "Warangal", 2023, 76.2, "census"),
		rec("literacy_rate", "Hyderabad", 2023, 83.3, "census"),
		rec("literacy_rate", "Adilabad", 2023, 61.6, "census"),
		rec("literacy_rate", "Karimnagar", 2023, 72.5, "census"),
		rec("literacy_rate", "Nizamabad", 2023, 68.4, "census"),
	}
}

// ==========================
// Trend
// ==========================

func TestDetect_GrowthScenario(t *testing.T) {
	d := createTestDetector(t)
	analysis := &models.QueryAnalysis{Intent: models.IntentTrend, Locations: []string{"Telangana"}}

	insights := d.Detect(telanganaLiteracy(), analysis)
	require.Len(t, insights, 1)

	ins := insights[0]
	assert.Equal(t, models.InsightGrowth, ins.Type)
	require.NotNil(t, ins.ChangePercentage)
	assert.Equal(t, 34.6, *ins.ChangePercentage)
	assert.Equal(t, models.DirectionUp, ins.Direction)
	assert.Equal(t, models.SentimentPositive, ins.Sentiment)
	assert.Equal(t, models.MagnitudeDramatic, ins.Magnitude)
	assert.Equal(t, models.VelocitySteady, ins.Velocity)
	assert.InDelta(t, 0.85, ins.Confidence, 1e-9)
	assert.Equal(t, 89.5, ins.CurrentValue)
	assert.Equal(t, 66.5, *ins.PreviousValue)
	assert.Equal(t, &models.YearSpan{From: 2015, To: 2023}, ins.TimeRange)
	assert.Equal(t, []string{"census"}, ins.Sources)
	assert.Equal(t, 5, ins.DataPoints)
	assert.Equal(t, "Literacy Rate in Telangana rose 34.6% from 66.5 (2015) to 89.5 (2023)", ins.Summary)
	assert.Equal(t, "Literacy Rate has dramatically improved by 34.6%", ins.HumanImpact)
}

func TestDetect_InverseMetricDecline(t *testing.T) {
	d := createTestDetector(t)
	records := []models.DataRecord{
		rec("infant_mortality", "Bihar", 2015, 40, "nfhs"),
		rec("infant_mortality", "Bihar", 2023, 28, "nfhs"),
	}

	insights := d.Detect(records, &models.QueryAnalysis{Intent: models.IntentTrend})
	require.Len(t, insights, 1)

	ins := insights[0]
	assert.Equal(t, models.InsightDecline, ins.Type)
	assert.Equal(t, -30.0, *ins.ChangePercentage)
	assert.Equal(t, models.DirectionDown, ins.Direction)
	assert.Equal(t, models.SentimentPositive, ins.Sentiment)
	assert.Equal(t, models.VelocityGradual, ins.Velocity)
	assert.Equal(t, "Infant Mortality in Bihar fell 30.0% from 40.0 (2015) to 28.0 (2023)", ins.Summary)
	assert.Equal(t, "Infant Mortality has dramatically decreased by 30.0%", ins.HumanImpact)
}

func TestDetect_FlatSeries(t *testing.T) {
	d := createTestDetector(t)
	records := []models.DataRecord{
		rec("literacy_rate", "", 2019, 70, "census"),
		rec("literacy_rate", "", 2023, 70, "census"),
	}

	insights := d.Detect(records, nil)
	require.Len(t, insights, 1)
	assert.Equal(t, models.InsightGrowth, insights[0].Type)
	assert.Equal(t, models.DirectionFlat, insights[0].Direction)
	assert.Equal(t, models.SentimentNeutral, insights[0].Sentiment)
	assert.Equal(t, "Literacy Rate held steady at 70.0 between 2019 and 2023", insights[0].Summary)
}

func TestDetect_ZeroBaselineSkipped(t *testing.T) {
	d := createTestDetector(t)
	records := []models.DataRecord{
		rec("new_schools", "Goa", 2019, 0, "udise"),
		rec("new_schools", "Goa", 2023, 12, "udise"),
	}

	assert.Empty(t, d.Detect(records, nil))
}

func TestDetect_SameYearValuesAveraged(t *testing.T) {
	d := createTestDetector(t)
	records := []models.DataRecord{
		rec("literacy_rate", "Kerala", 2015, 60, "census"),
		rec("literacy_rate", "Kerala", 2015, 70, "survey"),
		rec("literacy_rate", "Kerala", 2020, 78, "census"),
	}

	insights := d.Detect(records, nil)
	require.Len(t, insights, 1)
	assert.Equal(t, 20.0, *insights[0].ChangePercentage)
	assert.Equal(t, 65.0, *insights[0].PreviousValue)
	assert.Equal(t, []string{"census", "survey"}, insights[0].Sources)
}

func TestVelocity(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   models.Velocity
	}{
		{"two points", []float64{10, 20}, models.VelocityGradual},
		{"accelerating", []float64{10, 11, 20}, models.VelocityAccelerating},
		{"decelerating", []float64{10, 19, 20}, models.VelocityDecelerating},
		{"steady", []float64{10, 15, 20}, models.VelocitySteady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, velocity(tt.values))
		})
	}
}

// ==========================
// Ranking
// ==========================

func TestDetect_RankingScenario(t *testing.T) {
	d := createTestDetector(t)
	analysis := &models.QueryAnalysis{Intent: models.IntentRanking, RankOrder: models.RankTop}

	insights := d.Detect(districtLiteracy(), analysis)
	require.Len(t, insights, 2)

	top := insights[0]
	assert.Equal(t, models.InsightRanking, top.Type)
	assert.Equal(t, "Hyderabad", top.Region)
	assert.Equal(t, 83.3, top.CurrentValue)
	assert.InDelta(t, 0.647, top.Confidence, 1e-9)
	assert.Equal(t, "Hyderabad leads with Literacy Rate at 83.3, while Adilabad trails at 61.6", top.Summary)
	assert.Nil(t, top.ChangePercentage)

	bottom := insights[1]
	assert.Equal(t, "Adilabad", bottom.Region)
	assert.Less(t, bottom.Confidence, top.Confidence)
	assert.Equal(t, "Adilabad ranks last for Literacy Rate at 61.6, behind leader Hyderabad at 83.3", bottom.Summary)

	primary := d.SelectPrimary(insights, analysis)
	require.NotNil(t, primary)
	assert.Equal(t, "Hyderabad", primary.Region)
}

func TestDetect_RankingBottomRequested(t *testing.T) {
	d := createTestDetector(t)
	// a wide gap at the top would otherwise win
	records := []models.DataRecord{
		rec("literacy_rate", "Hyderabad", 2023, 95, "census"),
		rec("literacy_rate", "Warangal", 2023, 62, "census"),
		rec("literacy_rate", "Adilabad", 2023, 61, "census"),
	}
	analysis := &models.QueryAnalysis{Intent: models.IntentRanking, RankOrder: models.RankBottom}

	primary := d.SelectPrimary(d.Detect(records, analysis), analysis)
	require.NotNil(t, primary)
	assert.Equal(t, "Adilabad", primary.Region)
}

func TestDetect_RankingUsesLatestSharedYear(t *testing.T) {
	d := createTestDetector(t)
	records := []models.DataRecord{
		rec("literacy_rate", "Hyderabad", 2021, 80, "census"),
		rec("literacy_rate", "Warangal", 2021, 70, "census"),
		rec("literacy_rate", "Hyderabad", 2023, 83, "census"),
	}

	insights := d.Detect(records, &models.QueryAnalysis{Intent: models.IntentRanking})
	var rankings []models.Insight
	for _, ins := range insights {
		if ins.Type == models.InsightRanking {
			rankings = append(rankings, ins)
		}
	}
	require.Len(t, rankings, 2)
	assert.Equal(t, &models.YearSpan{From: 2021, To: 2021}, rankings[0].TimeRange)
	assert.Equal(t, 80.0, rankings[0].CurrentValue)
}

func TestDetect_NoRankingForTrendQueryWithSeries(t *testing.T) {
	d := createTestDetector(t)
	records := []models.DataRecord{
		rec("literacy_rate", "Hyderabad", 2019, 80, "census"),
		rec("literacy_rate", "Warangal", 2019, 70, "census"),
		rec("literacy_rate", "Hyderabad", 2023, 83, "census"),
		rec("literacy_rate", "Warangal", 2023, 72, "census"),
	}

	for _, ins := range d.Detect(records, &models.QueryAnalysis{Intent: models.IntentTrend}) {
		assert.True(t, ins.IsTrend(), ins.Summary)
	}
}

// ==========================
// Anomaly
// ==========================

func spikeSeries(region string, spike float64) []models.DataRecord {
	var out []models.DataRecord
	for y := 2016; y <= 2022; y++ {
		out = append(out, rec("rainfall_mm", region, y, 10, "imd"))
	}
	return append(out, rec("rainfall_mm", region, 2023, spike, "imd"))
}

func TestDetect_Anomaly(t *testing.T) {
	d := createTestDetector(t)

	insights := d.Detect(spikeSeries("Kerala", 40), &models.QueryAnalysis{Intent: models.IntentAnomaly})

	var anomaly *models.Insight
	for i := range insights {
		if insights[i].Type == models.InsightAnomaly {
			anomaly = &insights[i]
		}
	}
	require.NotNil(t, anomaly)
	assert.Equal(t, models.DirectionUp, anomaly.Direction)
	assert.Equal(t, models.SentimentNeutral, anomaly.Sentiment)
	assert.Equal(t, 40.0, anomaly.CurrentValue)
	assert.InDelta(t, 2.646, anomaly.Strength, 0.001)
	assert.InDelta(t, 0.529, anomaly.Confidence, 1e-9)
	assert.Contains(t, anomaly.Summary, "unusually high at 40.0 in 2023")
}

func TestDetect_AnomalyNeedsMinimumPoints(t *testing.T) {
	d := createTestDetector(t)
	records := spikeSeries("Kerala", 40)[4:]

	for _, ins := range d.Detect(records, nil) {
		assert.NotEqual(t, models.InsightAnomaly, ins.Type)
	}
}

func TestDetect_AnomaliesCappedPerMetric(t *testing.T) {
	d := createTestDetector(t)
	var records []models.DataRecord
	for _, region := range []string{"A", "B", "C", "D"} {
		records = append(records, spikeSeries(region, 40)...)
	}

	var regions []string
	for _, ins := range d.Detect(records, nil) {
		if ins.Type == models.InsightAnomaly {
			regions = append(regions, ins.Region)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, regions)
}

// ==========================
// Comparison
// ==========================

func TestDetect_Comparison(t *testing.T) {
	d := createTestDetector(t)
	records := []models.DataRecord{
		rec("literacy_rate", "Kerala", 2021, 94.0, "census"),
		rec("literacy_rate", "Bihar", 2021, 61.8, "census"),
		rec("hospital_beds", "Kerala", 2021, 30, "nhp"),
		rec("hospital_beds", "Bihar", 2021, 12, "nhp"),
	}
	analysis := &models.QueryAnalysis{
		Intent:    models.IntentComparison,
		Topics:    []string{"literacy"},
		Locations: []string{"Kerala", "Bihar"},
	}

	insights := d.Detect(records, analysis)

	var comparisons []models.Insight
	for _, ins := range insights {
		if ins.Type == models.InsightComparison {
			comparisons = append(comparisons, ins)
		}
		if ins.MetricName == "literacy_rate" {
			assert.NotEqual(t, models.InsightRanking, ins.Type)
		}
	}
	require.Len(t, comparisons, 1)

	c := comparisons[0]
	assert.Equal(t, "literacy_rate", c.MetricName)
	assert.Equal(t, 52.1, *c.ChangePercentage)
	assert.Equal(t, models.DirectionUp, c.Direction)
	assert.Equal(t, models.SentimentPositive, c.Sentiment)
	assert.InDelta(t, 0.8, c.Confidence, 1e-9)
	assert.Equal(t, "Kerala", c.Region)
	assert.Equal(t, "Literacy Rate: Kerala at 94.0 against Bihar at 61.8, 52.1% higher", c.Summary)

	primary := d.SelectPrimary(insights, analysis)
	require.NotNil(t, primary)
	assert.Equal(t, models.InsightComparison, primary.Type)
}

func TestDetect_ComparisonZeroBaseline(t *testing.T) {
	d := createTestDetector(t)
	records := []models.DataRecord{
		rec("new_schools", "Kerala", 0, 4, "udise"),
		rec("new_schools", "Bihar", 0, 0, "udise"),
	}
	analysis := &models.QueryAnalysis{Intent: models.IntentComparison, Locations: []string{"Kerala", "Bihar"}}

	insights := d.Detect(records, analysis)
	require.Len(t, insights, 1)
	assert.Nil(t, insights[0].ChangePercentage)
	assert.Equal(t, 4.0, insights[0].Strength)
	assert.Nil(t, insights[0].TimeRange)
}

// ==========================
// Completeness and ordering
// ==========================

func TestDetect_CompletenessAttenuation(t *testing.T) {
	th := vocabulary.Default().Thresholds()
	th.ExpectedSources = 2
	d := New(vocabulary.Default().WithThresholds(th), logger.NewTestLogger(t))

	insights := d.Detect(telanganaLiteracy(), nil)
	require.Len(t, insights, 1)
	assert.InDelta(t, 0.425, insights[0].Confidence, 1e-9)

	th.ExpectedSources = 10
	d = New(vocabulary.Default().WithThresholds(th), logger.NewTestLogger(t))
	insights = d.Detect(telanganaLiteracy(), nil)
	assert.InDelta(t, 0.85*0.3, insights[0].Confidence, 1e-9)
}

func TestDetect_Empty(t *testing.T) {
	d := createTestDetector(t)

	insights := d.Detect(nil, nil)
	assert.NotNil(t, insights)
	assert.Empty(t, insights)
	assert.Nil(t, d.SelectPrimary(insights, nil))
}

func TestSelectPrimary_Deterministic(t *testing.T) {
	d := createTestDetector(t)
	records := append(telanganaLiteracy(), districtLiteracy()...)
	analysis := &models.QueryAnalysis{Intent: models.IntentTrend}

	want := d.SelectPrimary(d.Detect(records, analysis), analysis)
	require.NotNil(t, want)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]models.DataRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		insights := d.Detect(shuffled, analysis)
		rng.Shuffle(len(insights), func(a, b int) { insights[a], insights[b] = insights[b], insights[a] })

		assert.Equal(t, want, d.SelectPrimary(insights, analysis))
	}
}

func TestSortInsights_IntentBreaksTies(t *testing.T) {
	insights := []models.Insight{
		{Type: models.InsightRanking, Confidence: 0.8, Strength: 5, MetricName: "a"},
		{Type: models.InsightGrowth, Confidence: 0.8, Strength: 5, MetricName: "b"},
	}

	sortInsights(insights, &models.QueryAnalysis{Intent: models.IntentRanking})
	assert.Equal(t, models.InsightRanking, insights[0].Type)

	sortInsights(insights, &models.QueryAnalysis{Intent: models.IntentTrend})
	assert.Equal(t, models.InsightGrowth, insights[0].Type)
}

func TestCleanMetric(t *testing.T) {
	assert.Equal(t, "Literacy Rate", CleanMetric("literacy_rate"))
	assert.Equal(t, "Gdp Growth", CleanMetric("gdp-growth"))
	assert.Equal(t, "", CleanMetric(""))
}
