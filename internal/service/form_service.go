package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/repository"
)

type FormService struct {
	forms *repository.FormRepo
}

func NewFormService(forms *repository.FormRepo) *FormService {
	return &FormService{forms: forms}
}

// FormInput is the body of a create request.
type FormInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Fields      []map[string]any `json:"fields"`
	Published   *bool            `json:"published,omitempty"`
}

// FormPatch updates only the properties that are set.
type FormPatch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Fields      []map[string]any `json:"fields,omitempty"`
	Published   *bool            `json:"published,omitempty"`
}

func (s *FormService) Create(ctx context.Context, ownerID string, in FormInput) (*models.Form, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("form name is required")
	}
	if len(in.Fields) == 0 {
		return nil, invalid("at least one field is required")
	}
	if err := validateFields(in.Fields); err != nil {
		return nil, err
	}

	slug := generateSlug(name)
	existing, err := s.forms.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slug = slug + "-" + uuid.NewString()[:8]
	}

	published := true
	if in.Published != nil {
		published = *in.Published
	}
	now := time.Now().UTC()
	form := &models.Form{
		ID:          repository.NewID(),
		OwnerID:     ownerID,
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		Fields:      in.Fields,
		Published:   published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.forms.Create(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *FormService) List(ctx context.Context, ownerID string) ([]models.Form, error) {
	return s.forms.FindByOwner(ctx, ownerID)
}

// Get returns the form if ownerID owns it. Forms of other users read as
// missing.
func (s *FormService) Get(ctx context.Context, ownerID, id string) (*models.Form, error) {
	form, err := s.forms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if form == nil || form.OwnerID != ownerID {
		return nil, notFound("form")
	}
	return form, nil
}

// GetPublished returns a form open to public submissions.
func (s *FormService) GetPublished(ctx context.Context, id string) (*models.Form, error) {
	form, err := s.forms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if form == nil || !form.Published {
		return nil, notFound("form")
	}
	return form, nil
}

func (s *FormService) Update(ctx context.Context, ownerID, id string, p FormPatch) (*models.Form, error) {
	form, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, invalid("form name is required")
		}
		form.Name = name
	}
	if p.Description != nil {
		form.Description = *p.Description
	}
	if len(p.Fields) > 0 {
		if err := validateFields(p.Fields); err != nil {
			return nil, err
		}
		form.Fields = p.Fields
	}
	if p.Published != nil {
		form.Published = *p.Published
	}
	form.UpdatedAt = time.Now().UTC()

	if err := s.forms.Update(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *FormService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	ok, err := s.forms.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("form")
	}
	return nil
}

// validateFields checks that every field has a key and keys are unique,
// since submission data is keyed by them.
func validateFields(fields []map[string]any) error {
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		key := fieldKey(f)
		if key == "" {
			return invalid("field %d has no id", i+1)
		}
		if seen[key] {
			return invalid("duplicate field id %q", key)
		}
		seen[key] = true
	}
	return nil
}

func fieldKey(f map[string]any) string {
	if id, ok := f["id"].(string); ok && id != "" {
		return id
	}
	name, _ := f["name"].(string)
	return name
}

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonAlphaNum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "form"
	}
	return slug
}
