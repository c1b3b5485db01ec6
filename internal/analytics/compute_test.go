package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildStatsConversion(t *testing.T) {
	s := BuildStats(Counts{TotalVisits: 1247, UniqueVisitors: 892, Applications: 156})
	assert.Equal(t, 17.5, s.ConversionRate)
	assert.Equal(t, 156, s.FilledForms)

	zero := BuildStats(Counts{Applications: 3})
	assert.Equal(t, 0.0, zero.ConversionRate)
	assert.Equal(t, 3, zero.FilledForms)
}

func TestBuildFunnel(t *testing.T) {
	stages := BuildFunnel(Counts{UniqueVisitors: 892, CTAClicks: 234, FormStarts: 198, Applications: 156})
	assert.Equal(t, []FunnelStage{
		{Step: StageLandingView, Count: 892, DropRate: 0},
		{Step: StageCTAClick, Count: 234, DropRate: 74},
		{Step: StageFormStart, Count: 198, DropRate: 15},
		{Step: StageFormSubmit, Count: 156, DropRate: 21},
	}, stages)
}

func TestBuildFunnelNotMonotonic(t *testing.T) {
	stages := BuildFunnel(Counts{UniqueVisitors: 0, CTAClicks: 5, FormStarts: 10, Applications: 10})
	assert.Equal(t, 0, stages[1].DropRate, "previous stage empty")
	assert.Equal(t, -100, stages[2].DropRate)
	assert.Equal(t, 0, stages[3].DropRate)
}

func TestFinishUTMSortsAndConverts(t *testing.T) {
	stats := finishUTM(map[utmKey]*utmTally{
		{source: "direct"}:                 {clicks: 10, submissions: 1},
		{source: "vk", campaign: "spring"}: {clicks: 30, submissions: 4},
		{source: "tg", campaign: "b"}:      {clicks: 10, submissions: 0},
		{source: "tg", campaign: "a"}:      {clicks: 0, submissions: 2},
	})
	assert.Equal(t, []UTMStat{
		{Source: "vk", Campaign: "spring", Clicks: 30, Submissions: 4, Conversion: 13.3},
		{Source: "direct", Campaign: "", Clicks: 10, Submissions: 1, Conversion: 10},
		{Source: "tg", Campaign: "b", Clicks: 10, Submissions: 0, Conversion: 0},
		{Source: "tg", Campaign: "a", Clicks: 0, Submissions: 2, Conversion: 0},
	}, stats)
}

func TestDayRange(t *testing.T) {
	now := time.Date(2025, 3, 2, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, []string{"2025-02-28", "2025-03-01", "2025-03-02"}, DayRange(now, 3))
	assert.Len(t, DayRange(now, 0), 1)
}
