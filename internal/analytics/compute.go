package analytics

import (
	"math"
	"sort"
	"time"
)

// DirectSource labels visits without a utm_source.
const DirectSource = "direct"

// Funnel stage labels, in order.
const (
	StageLandingView = "Landing View"
	StageCTAClick    = "CTA Click"
	StageFormStart   = "Form Start"
	StageFormSubmit  = "Form Submit"
)

// BuildStats derives the headline figures. Conversion is 0 without visitors.
func BuildStats(c Counts) Stats {
	s := Stats{
		TotalVisits:    c.TotalVisits,
		UniqueVisitors: c.UniqueVisitors,
		CTAClicks:      c.CTAClicks,
		FormStarts:     c.FormStarts,
		FilledForms:    c.Applications,
	}
	if c.UniqueVisitors > 0 {
		s.ConversionRate = round1(float64(c.Applications) / float64(c.UniqueVisitors) * 100)
	}
	return s
}

// BuildFunnel derives the four-stage funnel. Stages are counted independently, so
// a later stage can exceed an earlier one and produce a negative drop rate.
func BuildFunnel(c Counts) []FunnelStage {
	stages := []FunnelStage{
		{Step: StageLandingView, Count: c.UniqueVisitors},
		{Step: StageCTAClick, Count: c.CTAClicks},
		{Step: StageFormStart, Count: c.FormStarts},
		{Step: StageFormSubmit, Count: c.Applications},
	}
	for i := 1; i < len(stages); i++ {
		stages[i].DropRate = dropRate(stages[i-1].Count, stages[i].Count)
	}
	return stages
}

func dropRate(prev, cur int) int {
	if prev == 0 {
		return 0
	}
	return int(math.Round((1 - float64(cur)/float64(prev)) * 100))
}

// utmKey groups attribution by source and campaign.
type utmKey struct {
	source   string
	campaign string
}

type utmTally struct {
	clicks      int
	submissions int
}

// finishUTM turns per-group tallies into sorted stats: clicks descending, then
// source and campaign ascending.
func finishUTM(groups map[utmKey]*utmTally) []UTMStat {
	out := make([]UTMStat, 0, len(groups))
	for k, t := range groups {
		out = append(out, NewUTMStat(k.source, k.campaign, t.clicks, t.submissions))
	}
	SortUTMStats(out)
	return out
}

// NewUTMStat computes the conversion of one group: submissions per click in
// percent, one decimal, 0 without clicks.
func NewUTMStat(source, campaign string, clicks, submissions int) UTMStat {
	s := UTMStat{Source: source, Campaign: campaign, Clicks: clicks, Submissions: submissions}
	if clicks > 0 {
		s.Conversion = round1(float64(submissions) / float64(clicks) * 100)
	}
	return s
}

// SortUTMStats applies the dashboard ordering in place.
func SortUTMStats(stats []UTMStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.Clicks != b.Clicks {
			return a.Clicks > b.Clicks
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Campaign < b.Campaign
	})
}

// DayRange returns the dates of the last days days ending today, oldest first.
func DayRange(now time.Time, days int) []string {
	if days < 1 {
		days = 1
	}
	today := now.UTC().Truncate(24 * time.Hour)
	out := make([]string, days)
	for i := range days {
		out[i] = today.AddDate(0, 0, i-days+1).Format(time.DateOnly)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
