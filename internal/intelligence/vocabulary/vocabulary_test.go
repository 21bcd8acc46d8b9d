package vocabulary

import (
	"os"
	"path/filepath"
	"testing"

	"narrative-workers/internal/common/config"
	"narrative-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentiment(t *testing.T) {
	v := Default()

	tests := []struct {
		metric string
		dir    models.Direction
		want   models.Sentiment
	}{
		{"literacy_rate", models.DirectionUp, models.SentimentPositive},
		{"literacy_rate", models.DirectionDown, models.SentimentNegative},
		{"infant_mortality", models.DirectionUp, models.SentimentNegative},
		{"infant_mortality", models.DirectionDown, models.SentimentPositive},
		{"unemployment_rate", models.DirectionUp, models.SentimentNegative},
		{"employment_rate", models.DirectionUp, models.SentimentPositive},
		{"rainfall_mm", models.DirectionUp, models.SentimentNeutral},
		{"literacy_rate", models.DirectionFlat, models.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.metric+"/"+string(tt.dir), func(t *testing.T) {
			assert.Equal(t, tt.want, v.Sentiment(tt.metric, tt.dir))
		})
	}
}

func TestMagnitude(t *testing.T) {
	v := Default()
	assert.Equal(t, models.MagnitudeSmall, v.Magnitude(4.9))
	assert.Equal(t, models.MagnitudeModerate, v.Magnitude(5))
	assert.Equal(t, models.MagnitudeLarge, v.Magnitude(15))
	assert.Equal(t, models.MagnitudeDramatic, v.Magnitude(34.6))
}

func TestSuggestions(t *testing.T) {
	v := Default()
	assert.Len(t, v.Suggestions("education"), 5)
	assert.Equal(t, "What is the current vaccination rate?", v.Suggestions("Health")[0])

	mixed := v.Suggestions("")
	assert.Len(t, mixed, 6)
	assert.Equal(t, "How has literacy changed in Telangana from 2015 to 2023?", mixed[0])
}

func TestDomainOf(t *testing.T) {
	v := Default()
	assert.Equal(t, "education", v.DomainOf("Literacy"))
	assert.Equal(t, "law", v.DomainOf("crime"))
	assert.Equal(t, "", v.DomainOf("district"))
}

func TestDefaultIsNotShared(t *testing.T) {
	a := Default()
	doms := a.Domains()
	doms[0].Keywords[0] = "mutated"

	assert.Equal(t, "school", Default().Domains()[0].Keywords[0])
	assert.Equal(t, "school", a.Domains()[0].Keywords[0])
}

func TestLoad_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
domains:
  - name: education
    keywords: [literacy, school]
  - name: tourism
    keywords: [tourist, hotel]
locations: [Goa, Telangana]
inverse_metrics: [accidents]
suggestions:
  tourism: ["How many tourists visited Goa in 2022?"]
`), 0o600))

	v, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Goa", "Telangana"}, v.Locations())
	assert.Equal(t, "tourism", v.DomainOf("hotel"))
	assert.Equal(t, "", v.DomainOf("enrollment"))
	assert.Equal(t, PolarityInverse, v.Polarity("road_accidents"))
	assert.Equal(t, PolarityUnknown, v.Polarity("crime_rate"))
	assert.Equal(t, []string{"How many tourists visited Goa in 2022?"}, v.Suggestions("tourism"))

	doms := v.Domains()
	assert.Equal(t, "tourism", doms[len(doms)-1].Name)
}

func TestFromConfig_Thresholds(t *testing.T) {
	v, err := FromConfig(config.IntelligenceConfig{
		StoryConfidenceThreshold: 0.7,
		AnomalyZThreshold:        2.5,
		ExpectedSources:          2,
	})
	require.NoError(t, err)

	th := v.Thresholds()
	assert.Equal(t, 0.7, th.StoryConfidence)
	assert.Equal(t, 2.5, th.AnomalyZ)
	assert.Equal(t, 2, th.ExpectedSources)
	assert.Equal(t, 5, th.AnomalyMinPoints)

	_, err = FromConfig(config.IntelligenceConfig{VocabularyPath: "/does/not/exist.yaml"})
	assert.Error(t, err)
}

func TestLoad_ShippedExample(t *testing.T) {
	v, err := Load("../../../configs/vocabulary.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, "agriculture", v.DomainOf("paddy"))
	assert.Equal(t, "health", v.DomainOf("immunization"))
	assert.Equal(t, PolarityInverse, v.Polarity("unemployment_rate"))
	assert.Contains(t, v.Locations(), "Karimnagar")
	assert.Len(t, v.Suggestions("agriculture"), 2)
}
