package service

import (
	"context"
	"strings"
	"time"

	"github.com/parisxmas/formdesk/internal/events"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/repository"
	"github.com/parisxmas/formdesk/internal/resolver"
)

type SubmissionService struct {
	subs      *repository.SubmissionRepo
	forms     *repository.FormRepo
	publisher events.Publisher
}

func NewSubmissionService(subs *repository.SubmissionRepo, forms *repository.FormRepo, publisher events.Publisher) *SubmissionService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &SubmissionService{subs: subs, forms: forms, publisher: publisher}
}

// SubmitInput is one public form submission.
type SubmitInput struct {
	Data      resolver.Object
	Partial   bool
	IPAddress string
	UserAgent string
}

// ListFilter narrows a submission listing. Query matches display values
// and labels, case-insensitively. Limit 0 returns everything.
type ListFilter struct {
	Status string
	Query  string
	Skip   int
	Limit  int
}

type SubmissionPage struct {
	Submissions []models.Submission `json:"submissions"`
	Total       int                 `json:"total"`
}

// Submit stores a submission for a published form and announces it.
// Partial submissions skip required-field checks.
func (s *SubmissionService) Submit(ctx context.Context, formID string, in SubmitInput) (*models.Submission, error) {
	form, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil || !form.Published {
		return nil, notFound("form")
	}

	status := models.StatusNew
	if in.Partial {
		status = models.StatusPartial
	} else if err := checkRequired(form, in.Data); err != nil {
		return nil, err
	}

	sub := &models.Submission{
		ID:        repository.NewID(),
		FormID:    form.ID,
		Data:      in.Data,
		Status:    status,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		CreatedAt: time.Now().UTC(),
	}
	if sub.Data == nil {
		sub.Data = resolver.Object{}
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.SubmissionEvent{
		Type:       models.EventSubmissionCreated,
		Form:       *form,
		Submission: *sub,
		Rows:       sub.Rows(form),
	})
	return sub, nil
}

var skipRequired = map[string]bool{"file": true, "heading": true, "signature": true}

func checkRequired(form *models.Form, data resolver.Object) error {
	answers := resolver.Unwrap(data)
	for _, f := range form.TypedFields() {
		if !f.Required || skipRequired[f.Type] {
			continue
		}
		val, ok := answers.Get(f.Key())
		if !ok || val == nil || val == "" {
			label := f.Label
			if label == "" {
				label = f.Key()
			}
			return invalid("required field missing: %s", label)
		}
	}
	return nil
}

// List returns the form's submissions, newest first.
func (s *SubmissionService) List(ctx context.Context, ownerID, formID string, f ListFilter) (*SubmissionPage, error) {
	form, err := s.ownedForm(ctx, ownerID, formID)
	if err != nil {
		return nil, err
	}
	var status models.Status
	if f.Status != "" {
		if status, err = models.ParseStatus(f.Status); err != nil {
			return nil, invalid("%s", err.Error())
		}
	}

	all, err := s.subs.FindByFormID(ctx, form.ID)
	if err != nil {
		return nil, err
	}

	schema := form.Schema()
	query := strings.ToLower(strings.TrimSpace(f.Query))
	matched := all[:0]
	for _, sub := range all {
		if status != "" && sub.Status != status {
			continue
		}
		if query != "" && !matches(resolver.Resolve(sub.Data, schema), query) {
			continue
		}
		matched = append(matched, sub)
	}

	page := &SubmissionPage{Total: len(matched), Submissions: paginate(matched, f.Skip, f.Limit)}
	return page, nil
}

func matches(rows []resolver.Row, query string) bool {
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.DisplayValue), query) || strings.Contains(strings.ToLower(r.Label), query) {
			return true
		}
	}
	return false
}

func paginate(subs []models.Submission, skip, limit int) []models.Submission {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(subs) {
		return []models.Submission{}
	}
	subs = subs[skip:]
	if limit > 0 && limit < len(subs) {
		subs = subs[:limit]
	}
	return subs
}

// Get returns a submission with its form, if ownerID owns the form.
func (s *SubmissionService) Get(ctx context.Context, ownerID, id string) (*models.Submission, *models.Form, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return nil, nil, notFound("submission")
	}
	form, err := s.forms.FindByID(ctx, sub.FormID)
	if err != nil {
		return nil, nil, err
	}
	if form == nil || form.OwnerID != ownerID {
		return nil, nil, notFound("submission")
	}
	return sub, form, nil
}

// Rows resolves a submission against its form schema.
func (s *SubmissionService) Rows(ctx context.Context, ownerID, id string) ([]resolver.Row, error) {
	sub, form, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return sub.Rows(form), nil
}

// UpdateStatus sets the triage status. The status is validated before the
// submission is looked up.
func (s *SubmissionService) UpdateStatus(ctx context.Context, ownerID, id, status string) (*models.Submission, error) {
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	sub, _, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.subs.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("submission")
	}
	sub.Status = st
	return sub, nil
}

// Delete removes a submission for good. Deleting it again reports not found.
func (s *SubmissionService) Delete(ctx context.Context, ownerID, id string) error {
	if _, _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	ok, err := s.subs.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("submission")
	}
	return nil
}

// Export returns every submission of the form, newest first, with the form.
func (s *SubmissionService) Export(ctx context.Context, ownerID, formID string) (*models.Form, []models.Submission, error) {
	form, err := s.ownedForm(ctx, ownerID, formID)
	if err != nil {
		return nil, nil, err
	}
	subs, err := s.subs.FindByFormID(ctx, form.ID)
	if err != nil {
		return nil, nil, err
	}
	return form, subs, nil
}

func (s *SubmissionService) CountByForm(ctx context.Context, formID string) (int, error) {
	return s.subs.CountByFormID(ctx, formID)
}

func (s *SubmissionService) ownedForm(ctx context.Context, ownerID, formID string) (*models.Form, error) {
	form, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil || form.OwnerID != ownerID {
		return nil, notFound("form")
	}
	return form, nil
}

// SearchHit is one submission matching a search, with its resolved rows.
type SearchHit struct {
	FormID     string            `json:"formId"`
	FormName   string            `json:"formName"`
	Submission models.Submission `json:"submission"`
	Rows       []resolver.Row    `json:"rows"`
}

type SearchResult struct {
	Hits  []SearchHit `json:"hits"`
	Total int         `json:"total"`
}

// Search looks for query across every form of ownerID, matching display
// values and labels like List does. At most limit hits are returned;
// Total counts all of them.
func (s *SubmissionService) Search(ctx context.Context, ownerID, query string, limit int) (*SearchResult, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, invalid("query is required")
	}
	forms, err := s.forms.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	res := &SearchResult{Hits: []SearchHit{}}
	for i := range forms {
		form := &forms[i]
		subs, err := s.subs.FindByFormID(ctx, form.ID)
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			rows := sub.Rows(form)
			if !matches(rows, query) {
				continue
			}
			res.Total++
			if limit <= 0 || len(res.Hits) < limit {
				res.Hits = append(res.Hits, SearchHit{FormID: form.ID, FormName: form.Name, Submission: sub, Rows: rows})
			}
		}
	}
	return res, nil
}
