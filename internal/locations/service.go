package locations

import (
	"context"
	"errors"
	"strings"

	"github.com/meridian-wms/meridian-wms/internal/platform/httpx"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Location, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Location, error) {
	if id <= 0 {
		return Location{}, errors.New("invalid location ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (Location, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Location{}, errors.New("location code is required")
	}
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) Create(ctx context.Context, location Location) (Location, error) {
	if err := s.validate(location); err != nil {
		return Location{}, err
	}
	return s.repo.Create(ctx, location)
}

// ResolveOrCreate returns the location with the given code, creating it
// as an active shelf when it does not exist yet. A concurrent create is
// absorbed by re-fetching on unique violation, so callers can use this
// idempotently.
func (s *Service) ResolveOrCreate(ctx context.Context, code string) (Location, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Location{}, errors.New("location code is required")
	}

	existing, err := s.repo.GetByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, httpx.ErrNotFound) {
		return Location{}, err
	}

	created, err := s.repo.Create(ctx, Location{
		Code:     code,
		Name:     code,
		Type:     TypeShelf,
		IsActive: true,
	})
	if errors.Is(err, httpx.ErrDuplicate) {
		return s.repo.GetByCode(ctx, code)
	}
	return created, err
}

func (s *Service) Update(ctx context.Context, id int64, location Location) error {
	if id <= 0 {
		return errors.New("invalid location ID")
	}
	if err := s.validate(location); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, location)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid location ID")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(l Location) error {
	if strings.TrimSpace(l.Code) == "" {
		return errors.New("location code is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("location name is required")
	}
	if !ValidType(l.Type) {
		return errors.New("location type must be warehouse, zone, shelf or bin")
	}
	if l.Capacity < 0 {
		return errors.New("location capacity cannot be negative")
	}
	return nil
}
