package vocabulary

var defaultDomains = []Domain{
	{Name: "education", Keywords: []string{"school", "literacy", "student", "teacher", "enrollment", "education", "college", "university", "exam", "dropout"}},
	{Name: "agriculture", Keywords: []string{"crop", "farm", "farmer", "yield", "irrigation", "harvest", "agriculture", "msp", "rainfall", "soil"}},
	{Name: "economy", Keywords: []string{"gdp", "income", "tax", "budget", "revenue", "growth", "inflation", "employment", "economy", "investment"}},
	{Name: "health", Keywords: []string{"hospital", "doctor", "patient", "disease", "mortality", "birth", "vaccination", "health", "medical", "death"}},
	{Name: "infrastructure", Keywords: []string{"road", "bridge", "electricity", "water", "sanitation", "housing", "construction", "infrastructure", "transport"}},
	{Name: "environment", Keywords: []string{"forest", "pollution", "air", "climate", "temperature", "wildlife", "environment", "conservation", "carbon"}},
	{Name: "demographics", Keywords: []string{"population", "census", "age", "gender", "urban", "rural", "migration", "density", "demographic"}},
	{Name: "law", Keywords: []string{"court", "case", "crime", "police", "judgment", "legislation", "policy", "legal", "law", "justice"}},
}

// Generic place words such as "district" or "state" are not locations.
var defaultLocations = []string{
	"Telangana", "Andhra Pradesh", "Karnataka", "Tamil Nadu", "Kerala",
	"Maharashtra", "Gujarat", "Rajasthan", "Uttar Pradesh", "Bihar",
	"Hyderabad", "Bangalore", "Chennai", "Mumbai", "Delhi",
	"Warangal", "Karimnagar", "Nizamabad", "Khammam", "Adilabad",
	"India",
}

var defaultMetricWords = []string{
	"rate", "percentage", "percent", "ratio", "count", "number",
	"total", "average", "mean", "median", "growth", "decline",
}

var defaultPositiveMetrics = []string{
	"literacy", "enrollment", "growth", "income", "revenue",
	"vaccination", "employment", "forest_cover", "forest cover", "life_expectancy", "life expectancy",
}

var defaultInverseMetrics = []string{
	"dropout", "mortality", "crime", "pollution", "unemployment",
	"poverty", "disease", "deaths", "decline",
}

var defaultSuggestions = map[string][]string{
	"education": {
		"How has literacy changed in Telangana from 2015 to 2023?",
		"Which district has the highest literacy rate?",
		"Compare urban vs rural literacy in Telangana",
		"Show enrollment trends over the last 5 years",
		"What is the current teacher-student ratio?",
	},
	"health": {
		"What is the current vaccination rate?",
		"How has infant mortality changed over time?",
		"Compare hospital beds across districts",
		"Show disease prevalence trends",
		"Which district has the best healthcare access?",
	},
	"economy": {
		"What is Telangana's current GDP growth?",
		"How has employment changed since 2015?",
		"Compare income levels across districts",
		"Show tax revenue trends",
	},
}

var defaultThresholds = Thresholds{
	StoryConfidence:       0.5,
	ExpectedSources:       1,
	CompletenessFloor:     0.3,
	AnomalyZ:              2.0,
	AnomalyMinPoints:      5,
	MaxAnomaliesPerMetric: 3,
	TrendConfidence:       0.85,
	ComparisonConfidence:  0.8,
	MagnitudeSmall:        5,
	MagnitudeModerate:     15,
	MagnitudeLarge:        30,
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	v := &Vocabulary{
		domains:         cloneDomains(defaultDomains),
		locations:       append([]string(nil), defaultLocations...),
		metricWords:     append([]string(nil), defaultMetricWords...),
		positiveMetrics: append([]string(nil), defaultPositiveMetrics...),
		inverseMetrics:  append([]string(nil), defaultInverseMetrics...),
		suggestions:     cloneSuggestions(defaultSuggestions),
		thresholds:      defaultThresholds,
	}
	v.index()
	return v
}

func cloneDomains(in []Domain) []Domain {
	out := make([]Domain, len(in))
	for i, d := range in {
		out[i] = Domain{Name: d.Name, Keywords: append([]string(nil), d.Keywords...)}
	}
	return out
}

func cloneSuggestions(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
