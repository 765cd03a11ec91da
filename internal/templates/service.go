package templates

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
)

type templateRepository interface {
	Create(ctx context.Context, tpl *models.PromptTemplate) (*models.PromptTemplate, error)
	FindByID(ctx context.Context, id int64) (*models.PromptTemplate, error)
	Save(ctx context.Context, tpl *models.PromptTemplate) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, activeOnly bool) ([]models.PromptTemplate, error)
	SetDefault(ctx context.Context, id int64) error
}

// Service exposes prompt template management.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PromptTemplate, error)
	Get(ctx context.Context, id int64) (*models.PromptTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]models.PromptTemplate, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*models.PromptTemplate, error)
	SetDefault(ctx context.Context, id int64) (*models.PromptTemplate, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo templateRepository
}

// NewService constructs a prompt template service over the provided repository.
func NewService(repo templateRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("template repository required")
	}
	return &service{repo: repo}, nil
}

// CreateInput models a new prompt template. Temperature is stored as an
// integer 0-100; callers divide by 100 before the model sees it.
type CreateInput struct {
	Name         string
	SystemPrompt string
	UserPrompt   string
	Model        string
	MaxTokens    int
	Temperature  int
	IsActive     *bool
}

// UpdateInput is a partial update: nil fields are left untouched.
type UpdateInput struct {
	Name         *string
	SystemPrompt *string
	UserPrompt   *string
	Model        *string
	MaxTokens    *int
	Temperature  *int
	IsActive     *bool
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PromptTemplate, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template name is required")
	}
	if strings.TrimSpace(input.SystemPrompt) == "" || strings.TrimSpace(input.UserPrompt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "system and user prompts are required")
	}
	if strings.TrimSpace(input.Model) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "model is required")
	}
	if input.MaxTokens <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max tokens must be positive")
	}
	if err := validateTemperature(input.Temperature); err != nil {
		return nil, err
	}

	tpl := &models.PromptTemplate{
		Name:         name,
		SystemPrompt: input.SystemPrompt,
		UserPrompt:   input.UserPrompt,
		Model:        input.Model,
		MaxTokens:    input.MaxTokens,
		Temperature:  input.Temperature,
		IsActive:     true,
	}
	if input.IsActive != nil {
		tpl.IsActive = *input.IsActive
	}

	created, err := s.repo.Create(ctx, tpl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist template")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.PromptTemplate, error) {
	return s.findTemplate(ctx, id)
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.PromptTemplate, error) {
	out, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list templates")
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateInput) (*models.PromptTemplate, error) {
	tpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "template name is required")
		}
		tpl.Name = name
	}
	if input.SystemPrompt != nil {
		tpl.SystemPrompt = *input.SystemPrompt
	}
	if input.UserPrompt != nil {
		tpl.UserPrompt = *input.UserPrompt
	}
	if input.Model != nil {
		tpl.Model = *input.Model
	}
	if input.MaxTokens != nil {
		if *input.MaxTokens <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max tokens must be positive")
		}
		tpl.MaxTokens = *input.MaxTokens
	}
	if input.Temperature != nil {
		if err := validateTemperature(*input.Temperature); err != nil {
			return nil, err
		}
		tpl.Temperature = *input.Temperature
	}
	if input.IsActive != nil {
		tpl.IsActive = *input.IsActive
	}

	if err := s.repo.Save(ctx, tpl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update template")
	}
	return tpl, nil
}

// SetDefault flags the template default; the repository clears every other
// default in the same transaction.
func (s *service) SetDefault(ctx context.Context, id int64) (*models.PromptTemplate, error) {
	tpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tpl.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inactive template cannot be default")
	}
	if err := s.repo.SetDefault(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default template")
	}
	tpl.IsDefault = true
	return tpl, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete template")
	}
	return nil
}

func (s *service) findTemplate(ctx context.Context, id int64) (*models.PromptTemplate, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template id is required")
	}
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load template")
	}
	return tpl, nil
}

func validateTemperature(temperature int) error {
	if temperature < 0 || temperature > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "temperature must be between 0 and 100")
	}
	return nil
}
