package service

import (
	"context"
	"sort"
	"time"

	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/repository"
	"github.com/parisxmas/formdesk/internal/resolver"
)

// TopValues is how many answers per field the analytics report keeps.
const TopValues = 5

type AnalyticsService struct {
	forms *repository.FormRepo
	subs  *repository.SubmissionRepo
}

func NewAnalyticsService(forms *repository.FormRepo, subs *repository.SubmissionRepo) *AnalyticsService {
	return &AnalyticsService{forms: forms, subs: subs}
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type FieldStats struct {
	FieldID   string       `json:"fieldId"`
	Label     string       `json:"label"`
	FieldType *string      `json:"fieldType"`
	Answered  int          `json:"answered"`
	Top       []ValueCount `json:"top"`
}

type FormAnalytics struct {
	FormID   string                `json:"formId"`
	Total    int                   `json:"total"`
	ByStatus map[models.Status]int `json:"byStatus"`
	ByDay    []DayCount            `json:"byDay"`
	Fields   []FieldStats          `json:"fields"`
}

// FormAnalytics aggregates a form's submissions. Field stats count the
// resolved display values, so they read the same as the submissions table.
// Fields appear in the order they were first seen.
func (s *AnalyticsService) FormAnalytics(ctx context.Context, ownerID, formID string) (*FormAnalytics, error) {
	form, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil || form.OwnerID != ownerID {
		return nil, notFound("form")
	}
	subs, err := s.subs.FindByFormID(ctx, form.ID)
	if err != nil {
		return nil, err
	}

	out := &FormAnalytics{
		FormID:   form.ID,
		Total:    len(subs),
		ByStatus: make(map[models.Status]int, len(models.Statuses)),
		ByDay:    []DayCount{},
		Fields:   []FieldStats{},
	}
	for _, st := range models.Statuses {
		out.ByStatus[st] = 0
	}

	schema := form.Schema()
	days := map[string]int{}
	fieldIdx := map[string]int{}
	values := []map[string]int{}
	for _, sub := range subs {
		out.ByStatus[sub.Status]++
		days[sub.CreatedAt.UTC().Format("2006-01-02")]++

		for _, row := range resolver.Resolve(sub.Data, schema) {
			i, ok := fieldIdx[row.FieldID]
			if !ok {
				i = len(out.Fields)
				fieldIdx[row.FieldID] = i
				out.Fields = append(out.Fields, FieldStats{FieldID: row.FieldID, Label: row.Label, FieldType: row.FieldType})
				values = append(values, map[string]int{})
			}
			if row.DisplayValue == resolver.NoAnswer || row.DisplayValue == resolver.NoSelection {
				continue
			}
			out.Fields[i].Answered++
			values[i][row.DisplayValue]++
		}
	}

	for d, n := range days {
		out.ByDay = append(out.ByDay, DayCount{Date: d, Count: n})
	}
	sort.Slice(out.ByDay, func(i, j int) bool { return out.ByDay[i].Date < out.ByDay[j].Date })

	for i := range out.Fields {
		out.Fields[i].Top = topValues(values[i], TopValues)
	}
	return out, nil
}

func topValues(counts map[string]int, n int) []ValueCount {
	list := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		list = append(list, ValueCount{Value: v, Count: c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Value < list[j].Value
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

type FormSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Published       bool   `json:"published"`
	SubmissionCount int    `json:"submissionCount"`
	FieldCount      int    `json:"fieldCount"`
	CreatedAt       string `json:"createdAt"`
}

type Dashboard struct {
	FormCount       int           `json:"formCount"`
	SubmissionCount int           `json:"submissionCount"`
	Forms           []FormSummary `json:"forms"`
}

// Dashboard summarises every form of the user.
func (s *AnalyticsService) Dashboard(ctx context.Context, ownerID string) (*Dashboard, error) {
	forms, err := s.forms.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{FormCount: len(forms), Forms: make([]FormSummary, 0, len(forms))}
	for _, f := range forms {
		count, err := s.subs.CountByFormID(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		d.SubmissionCount += count
		d.Forms = append(d.Forms, FormSummary{
			ID:              f.ID,
			Name:            f.Name,
			Slug:            f.Slug,
			Published:       f.Published,
			SubmissionCount: count,
			FieldCount:      len(f.Fields),
			CreatedAt:       f.CreatedAt.Format(time.RFC3339),
		})
	}
	return d, nil
}
