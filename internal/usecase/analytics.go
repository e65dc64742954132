package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xavierca1/followwise/internal/entity"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Window is the half-open range [From, To) analytics are computed over.
type Window struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Period Period    `json:"period"`
}

type StatusShare struct {
	Status     entity.LeadStatus `json:"status"`
	Count      int               `json:"count"`
	Percentage float64           `json:"percentage"`
}

type PeriodBucket struct {
	Label  string    `json:"label"`
	Start  time.Time `json:"start"`
	Leads  int       `json:"leads"`
	Emails int       `json:"emails"`
}

type AnalyticsReport struct {
	Window          Window         `json:"window"`
	TotalLeads      int            `json:"total_leads"`
	TotalEmails     int            `json:"total_emails"`
	ContactedLeads  int            `json:"contacted_leads"`
	ContactRate     float64        `json:"contact_rate"`
	ConversionRate  float64        `json:"conversion_rate"`
	StatusBreakdown []StatusShare  `json:"status_breakdown"`
	Periods         []PeriodBucket `json:"periods"`
}

// maxBuckets bounds the report size: a year of days fits.
const maxBuckets = 400

var rangeDurations = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// ParseWindow builds a window from API parameters. Explicit from/to (RFC3339
// or YYYY-MM-DD) take precedence over the named range.
func ParseWindow(rangeName, period, from, to string, now time.Time) (Window, error) {
	w := Window{Period: Period(strings.ToLower(period)), To: now.UTC()}
	if w.Period == "" {
		w.Period = PeriodMonth
	}
	switch w.Period {
	case PeriodDay, PeriodWeek, PeriodMonth:
	default:
		return Window{}, validationFailed([]ValidationError{{"period", "must be one of day, week, month"}})
	}

	if rangeName == "" {
		rangeName = "30d"
	}
	d, ok := rangeDurations[rangeName]
	if !ok {
		return Window{}, validationFailed([]ValidationError{{"range", "must be one of 7d, 30d, 90d, 1y"}})
	}
	w.From = w.To.Add(-d)

	if from != "" {
		t, err := parseWindowTime(from)
		if err != nil {
			return Window{}, validationFailed([]ValidationError{{"from", "must be RFC3339 or YYYY-MM-DD"}})
		}
		w.From = t
	}
	if to != "" {
		t, err := parseWindowTime(to)
		if err != nil {
			return Window{}, validationFailed([]ValidationError{{"to", "must be RFC3339 or YYYY-MM-DD"}})
		}
		w.To = t
	}
	if !w.From.Before(w.To) {
		return Window{}, validationFailed([]ValidationError{{"from", "must be before to"}})
	}
	if bucketCount(w, maxBuckets+1) > maxBuckets {
		return Window{}, validationFailed([]ValidationError{{"period",
			fmt.Sprintf("window spans more than %d %s buckets; use a longer period or a shorter window", maxBuckets, w.Period)}})
	}
	return w, nil
}

// bucketCount counts the window's buckets, stopping at limit.
func bucketCount(w Window, limit int) int {
	n := 0
	for start := periodStart(w.From, w.Period); start.Before(w.To) && n < limit; start = nextPeriod(start, w.Period) {
		n++
	}
	return n
}

func parseWindowTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

// ComputeAnalytics derives the report from leads and emails. It does not
// modify its inputs.
func ComputeAnalytics(leads []*entity.Lead, emails []*entity.SentEmail, w Window) AnalyticsReport {
	report := AnalyticsReport{Window: w}

	buckets := periodBuckets(w)
	counts := make(map[entity.LeadStatus]int, len(entity.LeadStatuses))
	inWindow := make(map[string]bool)

	for _, l := range leads {
		if !within(l.CreatedAt, w) {
			continue
		}
		report.TotalLeads++
		counts[l.Status]++
		inWindow[l.ID] = true
		if i := bucketIndex(buckets, l.CreatedAt); i >= 0 {
			buckets[i].Leads++
		}
	}

	contacted := make(map[string]bool)
	for _, e := range emails {
		if !within(e.SentAt, w) {
			continue
		}
		report.TotalEmails++
		if i := bucketIndex(buckets, e.SentAt); i >= 0 {
			buckets[i].Emails++
		}
		if e.SourceLeadID != nil && inWindow[*e.SourceLeadID] {
			contacted[*e.SourceLeadID] = true
		}
	}

	report.ContactedLeads = len(contacted)
	report.ContactRate = percentage(report.ContactedLeads, report.TotalLeads)
	report.ConversionRate = percentage(counts[entity.LeadStatusWon], report.TotalLeads)

	report.StatusBreakdown = make([]StatusShare, 0, len(entity.LeadStatuses))
	for _, st := range entity.LeadStatuses {
		report.StatusBreakdown = append(report.StatusBreakdown, StatusShare{
			Status:     st,
			Count:      counts[st],
			Percentage: percentage(counts[st], report.TotalLeads),
		})
	}
	report.Periods = buckets
	return report
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

func within(t time.Time, w Window) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

func periodBuckets(w Window) []PeriodBucket {
	var buckets []PeriodBucket
	for start := periodStart(w.From, w.Period); start.Before(w.To); start = nextPeriod(start, w.Period) {
		buckets = append(buckets, PeriodBucket{Label: periodLabel(start, w.Period), Start: start})
	}
	return buckets
}

func bucketIndex(buckets []PeriodBucket, t time.Time) int {
	idx := -1
	for i, b := range buckets {
		if t.Before(b.Start) {
			break
		}
		idx = i
	}
	return idx
}

func periodStart(t time.Time, p Period) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodDay:
		return day
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7 // Monday-based
		return day.AddDate(0, 0, -offset)
	default:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

func nextPeriod(t time.Time, p Period) time.Time {
	switch p {
	case PeriodDay:
		return t.AddDate(0, 0, 1)
	case PeriodWeek:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 1, 0)
	}
}

func periodLabel(t time.Time, p Period) string {
	switch p {
	case PeriodWeek:
		y, wk := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, wk)
	case PeriodDay:
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01")
	}
}

type GetAnalyticsUseCase struct {
	LeadRepo entity.LeadRepository
	Ledger   entity.SentEmailRepository
}

func NewGetAnalyticsUseCase(leadRepo entity.LeadRepository, ledger entity.SentEmailRepository) *GetAnalyticsUseCase {
	return &GetAnalyticsUseCase{LeadRepo: leadRepo, Ledger: ledger}
}

func (uc *GetAnalyticsUseCase) Execute(ctx context.Context, w Window) (*AnalyticsReport, error) {
	// Limit 0 reaches the repositories unclamped: every row.
	leads, err := uc.LeadRepo.List(ctx, entity.LeadFilter{})
	if err != nil {
		return nil, storageError("list leads", err)
	}
	emails, err := uc.Ledger.List(ctx, entity.SentEmailFilter{Since: w.From, Until: w.To})
	if err != nil {
		return nil, storageError("list sent emails", err)
	}

	report := ComputeAnalytics(leads, emails, w)
	return &report, nil
}
