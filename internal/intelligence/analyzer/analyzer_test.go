package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestAnalyzer(t *testing.T) *Analyzer {
	return New(vocabulary.Default(), logger.NewTestLogger(t))
}

func TestAnalyze_TrendQuery(t *testing.T) {
	a := createTestAnalyzer(t)

	got, err := a.Analyze("How has literacy changed in Telangana from 2015 to 2023?", "")
	require.NoError(t, err)

	assert.Equal(t, models.IntentTrend, got.Intent)
	assert.Equal(t, 1.0, got.IntentConfidence)
	assert.Equal(t, []string{"literacy"}, got.Topics)
	assert.Equal(t, []string{"Telangana"}, got.Locations)
	assert.Equal(t, []string{"2015", "2023"}, got.TimeReferences)
	assert.Equal(t, "education", got.DomainHint)
	assert.True(t, got.RequiresHistorical)
	assert.False(t, got.RequiresComparison)
	assert.Equal(t, models.OutputStory, got.PreferredOutput)
	assert.Equal(t, []string{"literacy", "telangana"}, got.SearchKeywords)
	assert.Equal(t, "how has literacy changed in telangana from 2015 to 2023", got.NormalizedQuery)
}

func TestAnalyze_RankingQuery(t *testing.T) {
	a := createTestAnalyzer(t)

	got, err := a.Analyze("Which district has the highest literacy rate?", "")
	require.NoError(t, err)

	assert.Equal(t, models.IntentRanking, got.Intent)
	assert.Equal(t, 0.9, got.IntentConfidence)
	assert.Equal(t, []string{"literacy"}, got.Topics)
	assert.Empty(t, got.Locations)
	assert.Empty(t, got.TimeReferences)
	assert.Equal(t, []string{"rate"}, got.Metrics)
	assert.False(t, got.RequiresHistorical)
	assert.Equal(t, models.OutputData, got.PreferredOutput)
	assert.Equal(t, models.RankTop, got.RankOrder)
	assert.False(t, got.WantsBottom())
}

func TestAnalyze_IntentRules(t *testing.T) {
	a := createTestAnalyzer(t)

	tests := []struct {
		name       string
		query      string
		intent     models.Intent
		confidence float64
	}{
		{"trend over time", "Show enrollment trends over time", models.IntentTrend, 1.0},
		{"trend hyphen range", "literacy 2015-2023", models.IntentTrend, 1.0},
		{"trend between", "crop yield between 2010 and 2020", models.IntentTrend, 1.0},
		{"trend beats ranking", "How has the top district changed since 2015", models.IntentTrend, 1.0},
		{"comparison vs", "urban vs rural literacy", models.IntentComparison, 0.9},
		{"comparison two locations", "literacy in Kerala and Bihar", models.IntentComparison, 0.9},
		{"comparison beats ranking", "compare the best schools", models.IntentComparison, 0.9},
		{"ranking lowest", "lowest vaccination coverage", models.IntentRanking, 0.9},
		{"anomaly", "any unusual spike in crime", models.IntentAnomaly, 0.8},
		{"fact question", "What is the current vaccination rate?", models.IntentFact, 0.6},
		{"fact without mark", "what is the gdp of Karnataka", models.IntentFact, 0.6},
		{"general", "literacy Telangana", models.IntentGeneral, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Analyze(tt.query, "")
			require.NoError(t, err)
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.confidence, got.IntentConfidence)
		})
	}
}

func TestAnalyze_EmptyQuery(t *testing.T) {
	a := createTestAnalyzer(t)

	for _, q := range []string{"", "   ", "\t\n"} {
		got, err := a.Analyze(q, "")
		assert.ErrorIs(t, err, ErrEmptyQuery)
		assert.Nil(t, got)
	}
}

func TestAnalyze_Locations(t *testing.T) {
	a := createTestAnalyzer(t)

	got, err := a.Analyze("literacy in andhra pradesh versus Telangana's districts and ANDHRA PRADESH", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Andhra Pradesh", "Telangana"}, got.Locations)
	assert.True(t, got.RequiresComparison)

	// "India" must not match inside "Indian".
	got, err = a.Analyze("Indian literacy", "")
	require.NoError(t, err)
	assert.Empty(t, got.Locations)
}

func TestAnalyze_Years(t *testing.T) {
	a := createTestAnalyzer(t)

	got, err := a.Analyze("literacy in 2023 compared to 2015 and again 2023, not 1799 or 2100", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"2023", "2015"}, got.TimeReferences)
	assert.True(t, got.RequiresHistorical)
	assert.Equal(t, models.OutputStory, got.PreferredOutput)

	from, to, ok := got.YearRange()
	assert.True(t, ok)
	assert.Equal(t, 2015, from)
	assert.Equal(t, 2023, to)
}

func TestAnalyze_TopicsPluralAndOrder(t *testing.T) {
	a := createTestAnalyzer(t)

	got, err := a.Analyze("hospitals, schools and universities in Kerala", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"hospital", "school", "university"}, got.Topics)
	assert.Equal(t, "education", got.DomainHint)

	// one hit each: education comes first in the table
	got, err = a.Analyze("hospitals and schools", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"hospital", "school"}, got.Topics)
	assert.Equal(t, "education", got.DomainHint)
}

func TestAnalyze_DomainHint(t *testing.T) {
	a := createTestAnalyzer(t)

	got, err := a.Analyze("How has literacy changed?", " Health ")
	require.NoError(t, err)
	assert.Equal(t, "health", got.DomainHint)

	got, err = a.Analyze("tell me something", "")
	require.NoError(t, err)
	assert.Equal(t, "", got.DomainHint)
	assert.Empty(t, got.Topics)
	assert.Equal(t, models.IntentGeneral, got.Intent)
}

func TestAnalyze_RankOrder(t *testing.T) {
	a := createTestAnalyzer(t)

	got, err := a.Analyze("Which district has the lowest literacy rate?", "")
	require.NoError(t, err)
	assert.Equal(t, models.RankBottom, got.RankOrder)
	assert.True(t, got.WantsBottom())
}

func TestAnalyze_MultiWordKeyword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domains:\n  - name: health\n    keywords: [infant mortality, hospital]\n"), 0o600))
	voc, err := vocabulary.Load(path)
	require.NoError(t, err)

	a := New(voc, logger.NewTestLogger(t))
	got, err := a.Analyze("How has infant mortality changed in Bihar?", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"infant mortality"}, got.Topics)
	assert.Equal(t, "health", got.DomainHint)
}
