package vocabulary

import (
	"fmt"
	"strings"

	"narrative-workers/internal/common/config"

	"github.com/spf13/viper"
)

type overrideFile struct {
	Domains         []Domain            `mapstructure:"domains"`
	Locations       []string            `mapstructure:"locations"`
	MetricWords     []string            `mapstructure:"metric_words"`
	PositiveMetrics []string            `mapstructure:"positive_metrics"`
	InverseMetrics  []string            `mapstructure:"inverse_metrics"`
	Suggestions     map[string][]string `mapstructure:"suggestions"`
}

// Load reads an override file (yaml or json) on top of the defaults. Lists
// present in the file replace the default list; domains are merged by name
// and new domains are appended after the built-in ones.
func Load(path string) (*Vocabulary, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}

	var o overrideFile
	if err := v.Unmarshal(&o); err != nil {
		return nil, fmt.Errorf("decode vocabulary %s: %w", path, err)
	}

	voc := Default()
	if err := voc.apply(o); err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	voc.index()
	return voc, nil
}

// FromConfig builds the vocabulary for the process: the defaults or the
// configured override file, with thresholds from the intelligence section.
func FromConfig(cfg config.IntelligenceConfig) (*Vocabulary, error) {
	voc := Default()
	if cfg.VocabularyPath != "" {
		var err error
		if voc, err = Load(cfg.VocabularyPath); err != nil {
			return nil, err
		}
	}

	t := voc.thresholds
	if cfg.StoryConfidenceThreshold > 0 {
		t.StoryConfidence = cfg.StoryConfidenceThreshold
	}
	if cfg.ExpectedSources > 0 {
		t.ExpectedSources = cfg.ExpectedSources
	}
	if cfg.CompletenessFloor > 0 {
		t.CompletenessFloor = cfg.CompletenessFloor
	}
	if cfg.AnomalyZThreshold > 0 {
		t.AnomalyZ = cfg.AnomalyZThreshold
	}
	if cfg.AnomalyMinPoints > 0 {
		t.AnomalyMinPoints = cfg.AnomalyMinPoints
	}
	if cfg.MaxAnomaliesPerMetric > 0 {
		t.MaxAnomaliesPerMetric = cfg.MaxAnomaliesPerMetric
	}
	return voc.WithThresholds(t), nil
}

// WithThresholds returns a copy of v using t.
func (v *Vocabulary) WithThresholds(t Thresholds) *Vocabulary {
	cp := &Vocabulary{
		domains:         cloneDomains(v.domains),
		locations:       append([]string(nil), v.locations...),
		metricWords:     append([]string(nil), v.metricWords...),
		positiveMetrics: append([]string(nil), v.positiveMetrics...),
		inverseMetrics:  append([]string(nil), v.inverseMetrics...),
		suggestions:     cloneSuggestions(v.suggestions),
		thresholds:      t,
	}
	cp.index()
	return cp
}

func (v *Vocabulary) apply(o overrideFile) error {
	for _, d := range o.Domains {
		name := strings.ToLower(strings.TrimSpace(d.Name))
		if name == "" {
			return fmt.Errorf("domain without a name")
		}
		kws := lowerAll(d.Keywords)
		replaced := false
		for i := range v.domains {
			if v.domains[i].Name == name {
				v.domains[i].Keywords = kws
				replaced = true
				break
			}
		}
		if !replaced {
			v.domains = append(v.domains, Domain{Name: name, Keywords: kws})
		}
	}

	if len(o.Locations) > 0 {
		v.locations = trimAll(o.Locations)
	}
	if len(o.MetricWords) > 0 {
		v.metricWords = lowerAll(o.MetricWords)
	}
	if len(o.PositiveMetrics) > 0 {
		v.positiveMetrics = lowerAll(o.PositiveMetrics)
	}
	if len(o.InverseMetrics) > 0 {
		v.inverseMetrics = lowerAll(o.InverseMetrics)
	}
	for domain, s := range o.Suggestions {
		v.suggestions[strings.ToLower(domain)] = append([]string(nil), s...)
	}
	return nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
