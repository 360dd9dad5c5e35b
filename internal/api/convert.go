package api

import (
	"jobtrail/internal/registry"
	"jobtrail/internal/stage"
)

// FromApplication converts a registry record to its API representation.
func FromApplication(app registry.Application) Application {
	dto := Application{
		ID:       app.ID,
		Company:  app.Company,
		Position: app.Position,
		Stage:    string(app.Stage),
	}
	if !app.LastUpdated.IsZero() {
		dto.LastUpdated = app.LastUpdated.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromApplications converts a slice of registry records.
func FromApplications(apps []registry.Application) []Application {
	out := make([]Application, 0, len(apps))
	for _, app := range apps {
		out = append(out, FromApplication(app))
	}
	return out
}

// GroupByStage converts the registry's grouped view. Every stage is present
// and ordered Applied, Interview, Offer, Rejected.
func GroupByStage(grouped map[stage.Stage][]registry.Application) ApplicationsByStage {
	result := ApplicationsByStage{Groups: make([]StageGroup, 0, len(stage.All()))}
	for _, s := range stage.All() {
		apps := FromApplications(grouped[s])
		result.Total += len(apps)
		result.Groups = append(result.Groups, StageGroup{Stage: string(s), Applications: apps})
	}
	return result
}

// StageCounts returns the number of applications per stage.
func StageCounts(grouped ApplicationsByStage) map[string]int {
	counts := make(map[string]int, len(grouped.Groups))
	for _, group := range grouped.Groups {
		counts[group.Stage] = len(group.Applications)
	}
	return counts
}
