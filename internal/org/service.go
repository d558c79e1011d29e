// Package org provides organization management on top of the fallback
// router: every repository operation is dispatched to whichever data-store
// provider currently answers.
package org

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackpilot/stackpilot/internal/api/models"
	"github.com/stackpilot/stackpilot/internal/datastore"
	"github.com/stackpilot/stackpilot/internal/provider"
)

// Service errors.
var (
	ErrOrgNotFound = errors.New("organization not found")
)

// Validation constants.
const (
	MaxNameLength  = 120
	MaxNotesLength = 500
)

var validPlans = map[string]bool{
	"free":       true,
	"pro":        true,
	"enterprise": true,
}

// Dispatcher routes a payload within a capability class. Satisfied by
// *provider.Router.
type Dispatcher interface {
	Dispatch(ctx context.Context, class provider.Class, payload any) (*provider.Result, error)
}

// Service provides organization operations.
type Service struct {
	dispatcher Dispatcher
}

// NewService creates a new organization service.
func NewService(dispatcher Dispatcher) *Service {
	return &Service{dispatcher: dispatcher}
}

// List retrieves organizations, newest first.
func (s *Service) List(ctx context.Context, limit int) (*models.PagedOrganizations, error) {
	if limit <= 0 {
		limit = 50
	}

	result, err := s.dispatch(ctx, datastore.Command{Op: datastore.OpList, Limit: limit})
	if err != nil {
		return nil, err
	}

	items := make([]models.Organization, 0, len(result.payload.Orgs))
	for _, o := range result.payload.Orgs {
		items = append(items, toAPIOrganization(o, result.providerID))
	}

	return &models.PagedOrganizations{
		Items: items,
		Meta:  models.PagedResponseMeta{Limit: limit},
	}, nil
}

// Get retrieves an organization by id.
func (s *Service) Get(ctx context.Context, orgID string) (*models.Organization, error) {
	result, err := s.dispatch(ctx, datastore.Command{Op: datastore.OpGet, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if !result.payload.Found {
		return nil, ErrOrgNotFound
	}

	out := toAPIOrganization(result.payload.Org, result.providerID)
	return &out, nil
}

// Create creates a new organization. The id is generated here, before
// dispatch, so a re-attempted create upserts rather than duplicating.
func (s *Service) Create(ctx context.Context, input *models.OrganizationCreateRequest) (*models.Organization, error) {
	if fieldErrors := validateCreateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := time.Now()
	plan := input.Plan
	if plan == "" {
		plan = "free"
	}

	record := &datastore.Organization{
		ID:        "org_" + uuid.New().String()[:22],
		Name:      input.Name,
		Plan:      plan,
		Notes:     input.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := s.dispatch(ctx, datastore.Command{Op: datastore.OpCreate, Org: record})
	if err != nil {
		return nil, err
	}

	out := toAPIOrganization(record, result.providerID)
	return &out, nil
}

// Update updates an existing organization.
func (s *Service) Update(ctx context.Context, orgID string, input *models.OrganizationUpdateRequest) (*models.Organization, error) {
	if fieldErrors := validateUpdateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	existing, err := s.dispatch(ctx, datastore.Command{Op: datastore.OpGet, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if !existing.payload.Found {
		return nil, ErrOrgNotFound
	}

	record := existing.payload.Org
	if input.Name != nil {
		record.Name = *input.Name
	}
	if input.Plan != nil {
		record.Plan = *input.Plan
	}
	if input.Notes != nil {
		record.Notes = input.Notes
	}
	record.UpdatedAt = time.Now()

	result, err := s.dispatch(ctx, datastore.Command{Op: datastore.OpUpdate, Org: record})
	if err != nil {
		return nil, err
	}

	out := toAPIOrganization(record, result.providerID)
	return &out, nil
}

// Delete removes an organization by id.
func (s *Service) Delete(ctx context.Context, orgID string) error {
	result, err := s.dispatch(ctx, datastore.Command{Op: datastore.OpDelete, OrgID: orgID})
	if err != nil {
		return err
	}
	if !result.payload.Found {
		return ErrOrgNotFound
	}
	return nil
}

type dispatchResult struct {
	payload    *datastore.CommandResult
	providerID string
}

func (s *Service) dispatch(ctx context.Context, cmd datastore.Command) (*dispatchResult, error) {
	result, err := s.dispatcher.Dispatch(ctx, provider.ClassDataStore, cmd)
	if err != nil {
		return nil, err
	}

	payload, ok := result.Response.(*datastore.CommandResult)
	if !ok {
		return nil, fmt.Errorf("unexpected datastore response type %T from provider %s", result.Response, result.ProviderID)
	}

	return &dispatchResult{payload: payload, providerID: result.ProviderID}, nil
}

func toAPIOrganization(o *datastore.Organization, servedBy string) models.Organization {
	return models.Organization{
		ID:        o.ID,
		Name:      o.Name,
		Plan:      o.Plan,
		Notes:     o.Notes,
		ServedBy:  servedBy,
		CreatedAt: models.Timestamp(o.CreatedAt),
		UpdatedAt: models.Timestamp(o.UpdatedAt),
	}
}

func validateCreateInput(input *models.OrganizationCreateRequest) []models.FieldError {
	var errs []models.FieldError

	if input.Name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "is required"})
	} else if len(input.Name) > MaxNameLength {
		errs = append(errs, models.FieldError{Field: "name", Message: "must be at most 120 characters"})
	}

	if input.Plan != "" && !validPlans[input.Plan] {
		errs = append(errs, models.FieldError{Field: "plan", Message: "must be one of free, pro, enterprise"})
	}

	if input.Notes != nil && len(*input.Notes) > MaxNotesLength {
		errs = append(errs, models.FieldError{Field: "notes", Message: "must be at most 500 characters"})
	}

	return errs
}

func validateUpdateInput(input *models.OrganizationUpdateRequest) []models.FieldError {
	var errs []models.FieldError

	if input.Name != nil {
		if *input.Name == "" {
			errs = append(errs, models.FieldError{Field: "name", Message: "must not be empty"})
		} else if len(*input.Name) > MaxNameLength {
			errs = append(errs, models.FieldError{Field: "name", Message: "must be at most 120 characters"})
		}
	}

	if input.Plan != nil && !validPlans[*input.Plan] {
		errs = append(errs, models.FieldError{Field: "plan", Message: "must be one of free, pro, enterprise"})
	}

	if input.Notes != nil && len(*input.Notes) > MaxNotesLength {
		errs = append(errs, models.FieldError{Field: "notes", Message: "must be at most 500 characters"})
	}

	return errs
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
