package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/repository"
)

type IntegrationService struct {
	integrations *repository.IntegrationRepo
}

func NewIntegrationService(integrations *repository.IntegrationRepo) *IntegrationService {
	return &IntegrationService{integrations: integrations}
}

type IntegrationInput struct {
	Provider string          `json:"provider"`
	Name     string          `json:"name"`
	Config   json.RawMessage `json:"config"`
	Active   *bool           `json:"active"`
}

func (s *IntegrationService) List(ctx context.Context, ownerID string) ([]models.Integration, error) {
	return s.integrations.FindByOwner(ctx, ownerID)
}

func (s *IntegrationService) Create(ctx context.Context, ownerID string, in IntegrationInput) (*models.Integration, error) {
	if err := validateIntegration(&in); err != nil {
		return nil, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	now := time.Now().UTC()
	item := &models.Integration{
		ID:        repository.NewID(),
		OwnerID:   ownerID,
		Provider:  in.Provider,
		Name:      in.Name,
		Config:    in.Config,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.integrations.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *IntegrationService) Update(ctx context.Context, ownerID, id string, in IntegrationInput) (*models.Integration, error) {
	item, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := validateIntegration(&in); err != nil {
		return nil, err
	}
	item.Provider = in.Provider
	item.Name = in.Name
	if len(in.Config) > 0 {
		item.Config = in.Config
	}
	if in.Active != nil {
		item.Active = *in.Active
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.integrations.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *IntegrationService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	ok, err := s.integrations.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("integration")
	}
	return nil
}

func (s *IntegrationService) owned(ctx context.Context, ownerID, id string) (*models.Integration, error) {
	item, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OwnerID != ownerID {
		return nil, notFound("integration")
	}
	return item, nil
}

func validateIntegration(in *IntegrationInput) error {
	in.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
	in.Name = strings.TrimSpace(in.Name)
	if in.Provider == "" {
		return invalid("provider is required")
	}
	if in.Name == "" {
		in.Name = in.Provider
	}
	if len(in.Config) > 0 && string(in.Config) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(in.Config, &obj); err != nil {
			return invalid("config must be a JSON object")
		}
	} else {
		in.Config = nil
	}
	return nil
}
