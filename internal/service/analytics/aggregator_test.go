package analytics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"go.viam.com/test"

	"potholewatch/internal/model"
)

func det(confidence float64) model.Detection {
	return model.Detection{Confidence: confidence}
}

func report(date time.Time, count, high int, status model.Status) model.Report {
	return model.Report{
		ID:                "report_" + date.Format(time.RFC3339Nano),
		Date:              date,
		Status:            status,
		PotholesCount:     count,
		HighSeverityCount: high,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	test.That(t, Summarize(nil), test.ShouldResemble, Summary{})
	test.That(t, Summarize([]model.DetectionResult{}), test.ShouldResemble, Summary{})
}

func TestSummarizeScenario(t *testing.T) {
	history := []model.DetectionResult{
		model.NewDetectionResult(time.Now(), []model.Detection{det(0.9), det(0.4)}),
	}
	got := Summarize(history)
	test.That(t, got, test.ShouldResemble, Summary{
		TotalPotholes:        2,
		TotalScans:           1,
		SuccessfulScans:      1,
		HighSeverityCount:    1,
		LowSeverityCount:     1,
		AvgConfidencePercent: 65.0,
	})
}

func TestSummarizeUsesServerSeverity(t *testing.T) {
	history := []model.DetectionResult{
		model.NewDetectionResult(time.Now(), []model.Detection{
			{Confidence: 0.3, Severity: model.SeverityHigh},
			{Confidence: 0.3, Severity: model.SeverityCritical},
			{Confidence: 0.95, Severity: model.SeverityMedium},
			{Confidence: 0.6, Severity: "bogus"},
		}),
		model.NewDetectionResult(time.Now(), nil),
	}
	got := Summarize(history)
	test.That(t, got.HighSeverityCount, test.ShouldEqual, 2)
	test.That(t, got.MediumSeverityCount, test.ShouldEqual, 2)
	test.That(t, got.LowSeverityCount, test.ShouldEqual, 0)
	test.That(t, got.TotalScans, test.ShouldEqual, 2)
	test.That(t, got.SuccessfulScans, test.ShouldEqual, 1)
}

func TestSummarizeIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var history []model.DetectionResult
	for i := 0; i < 40; i++ {
		n := rng.Intn(5)
		ds := make([]model.Detection, n)
		for j := range ds {
			// eighths are exact in binary so sums do not depend on order
			ds[j] = det(float64(rng.Intn(9)) / 8)
		}
		history = append(history, model.NewDetectionResult(time.Now(), ds))
	}

	want := Summarize(history)
	for i := 0; i < 5; i++ {
		test.That(t, Summarize(lo.Shuffle(append([]model.DetectionResult(nil), history...))), test.ShouldResemble, want)
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r, test.ShouldEqual, RangeMonth)

	for _, name := range []string{"week", "month", "quarter", "year"} {
		r, err := ParseRange(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(r), test.ShouldEqual, name)
	}

	_, err = ParseRange("decade")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTrendEmpty(t *testing.T) {
	now := time.Date(2024, 5, 15, 15, 0, 0, 0, time.UTC)

	week := TrendOf(nil, RangeWeek, now)
	test.That(t, week.Detected, test.ShouldResemble, make([]int, 7))
	test.That(t, week.Repaired, test.ShouldResemble, make([]int, 7))
	test.That(t, week.Labels, test.ShouldHaveLength, 7)

	for _, r := range []Range{RangeMonth, RangeQuarter, RangeYear} {
		tr := TrendOf(nil, r, now)
		test.That(t, tr.Detected, test.ShouldResemble, make([]int, 12))
		test.That(t, tr.Repaired, test.ShouldResemble, make([]int, 12))
		test.That(t, tr.Labels[0], test.ShouldEqual, "Jan")
		test.That(t, tr.Labels[11], test.ShouldEqual, "Dec")
	}
}

func TestTrendWeekBuckets(t *testing.T) {
	now := time.Date(2024, 5, 15, 15, 0, 0, 0, time.UTC) // Wednesday
	reports := []model.Report{
		report(time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC), 3, 1, model.StatusCompleted),
		report(time.Date(2024, 5, 15, 11, 0, 0, 0, time.UTC), 2, 0, model.StatusPending),
		report(time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC), 4, 2, model.StatusCompleted),
		report(time.Date(2024, 5, 8, 16, 0, 0, 0, time.UTC), 5, 0, model.StatusCompleted),
		report(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), 9, 0, model.StatusCompleted),
		report(time.Date(2024, 5, 16, 10, 0, 0, 0, time.UTC), 9, 0, model.StatusCompleted),
	}

	got := TrendOf(reports, RangeWeek, now)
	want := Trend{
		Labels:   []string{"Thu", "Fri", "Sat", "Sun", "Mon", "Tue", "Wed"},
		Detected: []int{4, 0, 0, 0, 0, 0, 5},
		Repaired: []int{1, 0, 0, 0, 0, 0, 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("week trend mismatch (-want +got):\n%s", diff)
	}
}

func TestTrendMonthBucketsAreCalendarMonths(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	reports := []model.Report{
		// one month before Mar 31 normalizes to Mar 2
		report(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), 7, 0, model.StatusPending),
		report(time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), 2, 0, model.StatusCompleted),
		report(time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC), 1, 0, model.StatusPending),
	}

	got := TrendOf(reports, RangeMonth, now)
	test.That(t, got.Detected[2], test.ShouldEqual, 3)
	test.That(t, got.Repaired[2], test.ShouldEqual, 1)
	test.That(t, lo.Sum(got.Detected), test.ShouldEqual, 3)

	year := TrendOf(reports, RangeYear, now)
	test.That(t, year.Detected[2], test.ShouldEqual, 10)
}

func TestTrendBucketsSumToFilteredTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	now := time.Date(2024, 8, 20, 9, 30, 0, 0, time.UTC)
	var reports []model.Report
	for i := 0; i < 300; i++ {
		date := now.Add(-time.Duration(rng.Int63n(int64(2 * 365 * 24 * time.Hour))))
		status := model.Statuses[rng.Intn(len(model.Statuses))]
		reports = append(reports, report(date, rng.Intn(10), 0, status))
	}

	for _, r := range []Range{RangeMonth, RangeQuarter, RangeYear} {
		tr := TrendOf(reports, r, now)
		filtered := Filter(reports, r, now)
		test.That(t, tr.Detected, test.ShouldHaveLength, 12)
		test.That(t, lo.Sum(tr.Detected), test.ShouldEqual, lo.SumBy(filtered, func(rep model.Report) int { return rep.PotholesCount }))
		test.That(t, lo.Sum(tr.Repaired), test.ShouldEqual, lo.CountBy(filtered, func(rep model.Report) bool { return rep.Status == model.StatusCompleted }))
	}
}

func TestSeverityBreakdownScenario(t *testing.T) {
	b := SeverityBreakdown([]model.Report{report(time.Now(), 10, 4, model.StatusPending)})
	test.That(t, b, test.ShouldResemble, Breakdown{High: 4, Medium: 4, Low: 2})
	test.That(t, b.Values(), test.ShouldResemble, []int{4, 4, 2})

	test.That(t, SeverityBreakdown(nil), test.ShouldResemble, Breakdown{})
}

func TestSeverityBreakdownHalfUp(t *testing.T) {
	// remainder -> medium
	for _, tc := range []struct{ rest, medium int }{{5, 3}, {1, 1}, {4, 2}, {10, 6}, {0, 0}} {
		b := SeverityBreakdown([]model.Report{report(time.Now(), tc.rest, 0, model.StatusPending)})
		test.That(t, b.Medium, test.ShouldEqual, tc.medium)
		test.That(t, b.Low, test.ShouldEqual, tc.rest-tc.medium)
	}
}

func TestSeverityBreakdownPairInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		count := rng.Intn(50)
		high := 0
		if count > 0 {
			high = rng.Intn(count + 1)
		}
		b := SeverityBreakdown([]model.Report{report(time.Now(), count, high, model.StatusPending)})
		test.That(t, b.High, test.ShouldEqual, high)
		test.That(t, b.Medium+b.Low, test.ShouldEqual, count-high)
	}
}

func TestOverview(t *testing.T) {
	tr := Trend{Detected: []int{1, 2}, Repaired: []int{1, 0}}
	o := OverviewOf(tr, Breakdown{High: 2})
	test.That(t, o, test.ShouldResemble, Overview{TotalDetected: 3, TotalRepaired: 1, HighSeverity: 2, RepairRatePercent: 33})

	test.That(t, OverviewOf(Trend{Detected: make([]int, 12), Repaired: make([]int, 12)}, Breakdown{}), test.ShouldResemble, Overview{})
}

func TestDashboard(t *testing.T) {
	now := time.Date(2024, 5, 15, 15, 0, 0, 0, time.UTC)
	reports := []model.Report{
		report(time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC), 10, 4, model.StatusCompleted),
		report(time.Date(2023, 1, 10, 8, 0, 0, 0, time.UTC), 10, 10, model.StatusPending),
	}
	d := DashboardOf(reports, RangeMonth, now)
	test.That(t, d.Severity, test.ShouldResemble, Breakdown{High: 4, Medium: 4, Low: 2})
	test.That(t, d.Overview.TotalDetected, test.ShouldEqual, 10)
	test.That(t, d.Overview.RepairRatePercent, test.ShouldEqual, 10)
	test.That(t, d.Range, test.ShouldEqual, RangeMonth)
}

func TestMetricsOf(t *testing.T) {
	m := MetricsOf([]model.Detection{
		{Confidence: 0.9},
		{Confidence: 0.75},
		{Confidence: 0.3, Severity: model.SeverityHigh},
		{Confidence: 0.55},
	})
	test.That(t, m, test.ShouldResemble, Metrics{AvgConfidence: "62.5%", PotholesFound: 4, HighSeverityCount: 3})

	test.That(t, MetricsOf(nil), test.ShouldResemble, Metrics{AvgConfidence: "0.0%"})
}
