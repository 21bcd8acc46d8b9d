package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"narrative-workers/internal/cli/formatter"
	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func init() {
	formatter.SetStyled(false)
}

func createTestConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Retrieval.Backends = []string{config.BackendSQLite}
	return cfg
}

func testApp(t *testing.T) *App {
	t.Helper()
	return &App{
		Config: createTestConfig(),
		Logger: logger.NewTestLogger(t),
		DBPath: filepath.Join(t.TempDir(), "records.db"),
	}
}

func writeFixture(t *testing.T) string {
	t.Helper()
	var records []models.DataRecord
	for i, v := range []float64{66.5, 72.0, 78.4, 84.1, 89.5} {
		records = append(records, models.DataRecord{
			MetricName: "literacy_rate",
			Region:     "Telangana",
			Year:       models.YearOf(2015 + 2*i),
			Value:      v,
			Source:     "census",
			Unit:       "%",
		})
	}
	data, err := json.Marshal(map[string]interface{}{"records": records})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// executeCmd runs the command tree and captures its output.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// ==========================
// analyze
// ==========================

func TestAnalyzeCmd(t *testing.T) {
	out, err := executeCmd(t, testApp(t), "analyze", "How has literacy changed in Telangana from 2015 to 2023?")
	require.NoError(t, err)
	assert.Contains(t, out, "QUERY ANALYSIS")
	assert.Contains(t, out, "trend")
	assert.Contains(t, out, "Telangana")
	assert.Contains(t, out, "2015, 2023")
}

func TestAnalyzeCmd_JSON(t *testing.T) {
	out, err := executeCmd(t, testApp(t), "--json", "analyze", "Which", "district", "has", "the", "highest", "literacy", "rate?")
	require.NoError(t, err)

	var a models.QueryAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, models.IntentRanking, a.Intent)
	assert.Equal(t, models.RankTop, a.RankOrder)
}

func TestAnalyzeCmd_Errors(t *testing.T) {
	_, err := executeCmd(t, testApp(t), "analyze")
	assert.Error(t, err)

	_, err = executeCmd(t, testApp(t), "analyze", "   ")
	assert.Error(t, err)
}

// ==========================
// ask
// ==========================

func TestAskCmd_Fixture(t *testing.T) {
	app := testApp(t)
	out, err := executeCmd(t, app, "--fixture", writeFixture(t), "ask", "How has literacy changed in Telangana from 2015 to 2023?")
	require.NoError(t, err)

	assert.Contains(t, out, "story_five_frame")
	assert.Contains(t, out, "1. CONTEXT")
	assert.Contains(t, out, "5. IMPLICATION")
	assert.Contains(t, out, "sources: census")
}

func TestAskCmd_FlagsAndJSON(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		mode     models.OutputMode
		template string
	}{
		{"default story", nil, models.OutputStory, models.TemplateStoryFiveFrame},
		{"separate images", []string{"--separate-images"}, models.OutputStory, models.TemplateStoryCarousel},
		{"forced data", []string{"--mode", "data"}, models.OutputData, models.TemplateTrendLine},
	}

	fixture := writeFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"--json", "--fixture", fixture, "ask"}
			args = append(args, tt.args...)
			args = append(args, "How has literacy changed in Telangana from 2015 to 2023?")

			out, err := executeCmd(t, testApp(t), args...)
			require.NoError(t, err)

			var resp models.Response
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.True(t, resp.Success)
			assert.Equal(t, tt.mode, resp.OutputMode)
			assert.Equal(t, tt.template, resp.TemplateUsed)
		})
	}
}

func TestAskCmd_EmptyStoreHasNoData(t *testing.T) {
	out, err := executeCmd(t, testApp(t), "ask", "How has literacy changed in Telangana?")
	require.NoError(t, err)
	assert.Contains(t, out, "no matching data found for this query")
	assert.Contains(t, out, "TRY ASKING")
}

func TestAskCmd_MissingFixture(t *testing.T) {
	_, err := executeCmd(t, testApp(t), "--fixture", "/does/not/exist.json", "ask", "literacy")
	assert.Error(t, err)
}

// ==========================
// seed
// ==========================

func TestSeedThenAsk(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "seed", writeFixture(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 5 records")

	out, err = executeCmd(t, app, "--json", "ask", "How has literacy changed in Telangana from 2015 to 2023?")
	require.NoError(t, err)

	var resp models.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, models.OutputStory, resp.OutputMode)
	require.NotNil(t, resp.PrimaryInsight)
	require.NotNil(t, resp.PrimaryInsight.ChangePercentage)
	assert.InDelta(t, 34.6, *resp.PrimaryInsight.ChangePercentage, 0.001)
}

func TestSeedCmd_Errors(t *testing.T) {
	_, err := executeCmd(t, testApp(t), "seed")
	assert.Error(t, err)

	_, err = executeCmd(t, testApp(t), "seed", "/does/not/exist.json")
	assert.Error(t, err)
}

// ==========================
// suggest
// ==========================

func TestSuggestCmd(t *testing.T) {
	out, err := executeCmd(t, testApp(t), "suggest", "education")
	require.NoError(t, err)
	assert.Contains(t, out, "SUGGESTIONS FOR EDUCATION")
	assert.Contains(t, out, "How has literacy changed in Telangana from 2015 to 2023?")

	out, err = executeCmd(t, testApp(t), "--json", "suggest")
	require.NoError(t, err)
	var mixed []string
	require.NoError(t, json.Unmarshal([]byte(out), &mixed))
	assert.NotEmpty(t, mixed)
	assert.LessOrEqual(t, len(mixed), 8)
}
