package service

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/parisxmas/formdesk/internal/auth"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/repository"
)

type WebhookService struct {
	hooks *repository.WebhookRepo
	forms *repository.FormRepo
}

func NewWebhookService(hooks *repository.WebhookRepo, forms *repository.FormRepo) *WebhookService {
	return &WebhookService{hooks: hooks, forms: forms}
}

// WebhookInput is the body of create and update requests. On update, nil
// Active and empty Secret keep the stored values.
type WebhookInput struct {
	URL    string   `json:"url"`
	FormID string   `json:"formId"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
	Active *bool    `json:"active"`
}

func (s *WebhookService) List(ctx context.Context, ownerID string) ([]models.Webhook, error) {
	return s.hooks.FindByOwner(ctx, ownerID)
}

func (s *WebhookService) Create(ctx context.Context, ownerID string, in WebhookInput) (*models.Webhook, error) {
	if err := s.validate(ctx, ownerID, &in); err != nil {
		return nil, err
	}
	secret := in.Secret
	if secret == "" {
		var err error
		if secret, err = auth.NewSecret(); err != nil {
			return nil, err
		}
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	now := time.Now().UTC()
	hook := &models.Webhook{
		ID:        repository.NewID(),
		OwnerID:   ownerID,
		FormID:    in.FormID,
		URL:       in.URL,
		Events:    in.Events,
		Secret:    secret,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.hooks.Create(ctx, hook); err != nil {
		return nil, err
	}
	return hook, nil
}

func (s *WebhookService) Update(ctx context.Context, ownerID, id string, in WebhookInput) (*models.Webhook, error) {
	hook, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, ownerID, &in); err != nil {
		return nil, err
	}
	hook.URL = in.URL
	hook.FormID = in.FormID
	hook.Events = in.Events
	if in.Secret != "" {
		hook.Secret = in.Secret
	}
	if in.Active != nil {
		hook.Active = *in.Active
	}
	hook.UpdatedAt = time.Now().UTC()
	if err := s.hooks.Update(ctx, hook); err != nil {
		return nil, err
	}
	return hook, nil
}

func (s *WebhookService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	ok, err := s.hooks.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("webhook")
	}
	return nil
}

func (s *WebhookService) owned(ctx context.Context, ownerID, id string) (*models.Webhook, error) {
	hook, err := s.hooks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if hook == nil || hook.OwnerID != ownerID {
		return nil, notFound("webhook")
	}
	return hook, nil
}

func (s *WebhookService) validate(ctx context.Context, ownerID string, in *WebhookInput) error {
	in.URL = strings.TrimSpace(in.URL)
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("webhook url must be an absolute http(s) URL")
	}
	if len(in.Events) == 0 {
		in.Events = []string{models.EventSubmissionCreated}
	}
	for _, e := range in.Events {
		if !slices.Contains(models.KnownEvents, e) {
			return invalid("unknown webhook event %q", e)
		}
	}
	if in.FormID != "" {
		form, err := s.forms.FindByID(ctx, in.FormID)
		if err != nil {
			return err
		}
		if form == nil || form.OwnerID != ownerID {
			return notFound("form")
		}
	}
	return nil
}
