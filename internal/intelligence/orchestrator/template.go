package orchestrator

import "narrative-workers/internal/models"

type templateRule struct {
	mode     models.OutputMode
	intent   models.Intent
	insights []models.InsightType
	template string
}

// dataRules is checked in order; the first match wins.
var dataRules = []templateRule{
	{models.OutputData, models.IntentTrend, []models.InsightType{models.InsightGrowth, models.InsightDecline}, models.TemplateTrendLine},
	{models.OutputData, models.IntentRanking, []models.InsightType{models.InsightRanking}, models.TemplateRankingBar},
	{models.OutputData, models.IntentComparison, []models.InsightType{models.InsightComparison}, models.TemplateVersus},
}

// SelectTemplate maps the output mode, query intent and primary insight type
// to a visual template. insightType is empty when there is no primary
// insight.
func SelectTemplate(mode models.OutputMode, intent models.Intent, insightType models.InsightType, separateImages bool) string {
	if mode == models.OutputStory {
		if separateImages {
			return models.TemplateStoryCarousel
		}
		return models.TemplateStoryFiveFrame
	}
	for _, r := range dataRules {
		if r.mode != mode || r.intent != intent {
			continue
		}
		for _, t := range r.insights {
			if t == insightType {
				return r.template
			}
		}
	}
	return models.TemplateHeroStat
}
