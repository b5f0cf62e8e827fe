package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"

	"potholewatch/internal/model"
	"potholewatch/internal/service/severity"
)

// Range selects the trend window.
type Range string

const (
	RangeWeek    Range = "week"
	RangeMonth   Range = "month"
	RangeQuarter Range = "quarter"
	RangeYear    Range = "year"
)

// ErrUnknownRange is returned by ParseRange for unsupported names.
var ErrUnknownRange = errors.New("unknown range")

// DefaultRange is used when no range is requested.
const DefaultRange = RangeMonth

// ParseRange validates a range name. An empty string yields DefaultRange.
func ParseRange(s string) (Range, error) {
	switch r := Range(s); r {
	case "":
		return DefaultRange, nil
	case RangeWeek, RangeMonth, RangeQuarter, RangeYear:
		return r, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownRange, s)
}

// Start returns the beginning of the window ending at now. Months and years
// are subtracted on the calendar.
func (r Range) Start(now time.Time) time.Time {
	switch r {
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeQuarter:
		return now.AddDate(0, -3, 0)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Summary reduces the detection history.
type Summary struct {
	TotalPotholes        int     `json:"totalPotholes"`
	TotalScans           int     `json:"totalScans"`
	SuccessfulScans      int     `json:"successfulScans"`
	HighSeverityCount    int     `json:"highSeverityCount"`
	MediumSeverityCount  int     `json:"mediumSeverityCount"`
	LowSeverityCount     int     `json:"lowSeverityCount"`
	AvgConfidencePercent float64 `json:"avgConfidencePercent"`
}

// Trend is a pair of series over fixed buckets.
type Trend struct {
	Labels   []string `json:"labels"`
	Detected []int    `json:"detected"`
	Repaired []int    `json:"repaired"`
}

// Breakdown is the three-tier severity split across reports.
type Breakdown struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Values returns the breakdown as [high, medium, low].
func (b Breakdown) Values() []int {
	return []int{b.High, b.Medium, b.Low}
}

// Overview is the headline figures derived from a trend and a breakdown.
type Overview struct {
	TotalDetected     int `json:"totalDetected"`
	TotalRepaired     int `json:"totalRepaired"`
	HighSeverity      int `json:"highSeverity"`
	RepairRatePercent int `json:"repairRatePercent"`
}

// Dashboard bundles every report-derived figure for one range.
type Dashboard struct {
	Range     Range     `json:"range"`
	Trend     Trend     `json:"trend"`
	Severity  Breakdown `json:"severity"`
	Overview  Overview  `json:"overview"`
	Generated time.Time `json:"generated"`
}

// Summarize folds the history. Each detection counts once; critical detections
// count as high.
func Summarize(history []model.DetectionResult) Summary {
	var s Summary
	var confidence float64

	for _, result := range history {
		s.TotalScans++
		if len(result.Detections) > 0 {
			s.SuccessfulScans++
		}
		for _, d := range result.Detections {
			s.TotalPotholes++
			confidence += d.Confidence
			switch severity.Collapse(severity.Resolve(d)) {
			case model.SeverityHigh:
				s.HighSeverityCount++
			case model.SeverityMedium:
				s.MediumSeverityCount++
			default:
				s.LowSeverityCount++
			}
		}
	}

	if s.TotalPotholes > 0 {
		s.AvgConfidencePercent = roundTo(confidence/float64(s.TotalPotholes)*100, 1)
	}
	return s
}

// Filter keeps reports dated within [r.Start(now), now].
func Filter(reports []model.Report, r Range, now time.Time) []model.Report {
	start := r.Start(now)
	return lo.Filter(reports, func(rep model.Report, _ int) bool {
		return !rep.Date.Before(start) && !rep.Date.After(now)
	})
}

// TrendOf buckets reports within the range window. A week has seven daily
// buckets ending today; every other range has twelve calendar-month buckets.
func TrendOf(reports []model.Report, r Range, now time.Time) Trend {
	filtered := Filter(reports, r, now)
	if r == RangeWeek {
		return weekly(filtered, now)
	}
	return monthly(filtered, now.Location())
}

func weekly(reports []model.Report, now time.Time) Trend {
	t := Trend{
		Labels:   make([]string, 7),
		Detected: make([]int, 7),
		Repaired: make([]int, 7),
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 0; i < 7; i++ {
		dayStart := today.AddDate(0, 0, i-6)
		dayEnd := dayStart.AddDate(0, 0, 1)
		t.Labels[i] = dayStart.Weekday().String()[:3]
		for _, rep := range reports {
			if rep.Date.Before(dayStart) || !rep.Date.Before(dayEnd) {
				continue
			}
			t.Detected[i] += rep.PotholesCount
			if rep.Status == model.StatusCompleted {
				t.Repaired[i]++
			}
		}
	}
	return t
}

func monthly(reports []model.Report, loc *time.Location) Trend {
	t := Trend{
		Labels:   append([]string(nil), monthLabels...),
		Detected: make([]int, 12),
		Repaired: make([]int, 12),
	}
	for _, rep := range reports {
		m := int(rep.Date.In(loc).Month()) - 1
		t.Detected[m] += rep.PotholesCount
		if rep.Status == model.StatusCompleted {
			t.Repaired[m]++
		}
	}
	return t
}

// SeverityBreakdown sums high severity counts and splits the rest of each
// report 60/40 between medium and low, rounding medium half up.
func SeverityBreakdown(reports []model.Report) Breakdown {
	var b Breakdown
	for _, rep := range reports {
		b.High += rep.HighSeverityCount
		rest := rep.PotholesCount - rep.HighSeverityCount
		if rest < 0 {
			rest = 0
		}
		medium := int(math.Floor(float64(rest)*0.6 + 0.5))
		b.Medium += medium
		b.Low += rest - medium
	}
	return b
}

// OverviewOf derives the headline figures.
func OverviewOf(t Trend, b Breakdown) Overview {
	o := Overview{
		TotalDetected: lo.Sum(t.Detected),
		TotalRepaired: lo.Sum(t.Repaired),
		HighSeverity:  b.High,
	}
	if o.TotalDetected > 0 {
		o.RepairRatePercent = int(math.Floor(float64(o.TotalRepaired)/float64(o.TotalDetected)*100 + 0.5))
	}
	return o
}

// DashboardOf computes trend, breakdown and overview for the filtered reports.
func DashboardOf(reports []model.Report, r Range, now time.Time) Dashboard {
	trend := TrendOf(reports, r, now)
	breakdown := SeverityBreakdown(Filter(reports, r, now))
	return Dashboard{
		Range:     r,
		Trend:     trend,
		Severity:  breakdown,
		Overview:  OverviewOf(trend, breakdown),
		Generated: now,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
