package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/salon-management/internal/model"
	"github.com/iliyamo/salon-management/internal/queue"
	"github.com/iliyamo/salon-management/internal/repository"
	"github.com/iliyamo/salon-management/internal/utils"
)

// SalonStore is the relational persistence of salons.
type SalonStore interface {
	SalonSearcher
	Create(ctx context.Context, s *model.Salon, owners []model.NewOwner) ([]model.OwnerProfile, error)
	GetByID(ctx context.Context, id string) (*model.Salon, error)
	Update(ctx context.Context, id string, u model.SalonUpdate, actorID string) error
	SoftDelete(ctx context.Context, id, actorID string) error
	HardDelete(ctx context.Context, id string) error
}

// InvitationPublisher delivers owner invitations to the mailer.
type InvitationPublisher interface {
	PublishOwnerInvited(ctx context.Context, ev queue.OwnerInvitedEvent) error
}

// CreateSalonInput is the payload of a salon creation.  TrialPeriod is
// either a date (RFC 3339 or YYYY-MM-DD) or a number of days from now.
type CreateSalonInput struct {
	Name          string
	BusinessType  string
	VTANumber     string
	EmployeeCount int
	Email         string
	PhoneNumber   string
	Country       string
	Province      string
	City          string
	ZipCode       string
	TrialPeriod   string
	InitialPlan   string
	Owners        []model.NewOwner
}

// SalonService manages salons.  Every successful write flushes the directory
// cache before returning.
type SalonService struct {
	salons     SalonStore
	cache      *DirectoryCache
	publisher  InvitationPublisher
	production bool
	logger     *slog.Logger
	now        func() time.Time
}

// NewSalonService wires the service.  publisher may be nil, in which case
// invitations are only logged.  production disables hard deletes.
func NewSalonService(salons SalonStore, cache *DirectoryCache, publisher InvitationPublisher, production bool, logger *slog.Logger) *SalonService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SalonService{
		salons:     salons,
		cache:      cache,
		publisher:  publisher,
		production: production,
		logger:     logger.With("component", "salons"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a salon in TRIAL with its owners and publishes one
// invitation per owner.
func (s *SalonService) Create(ctx context.Context, actor *utils.Claims, in CreateSalonInput) (*model.Salon, error) {
	salon, err := s.buildSalon(in)
	if err != nil {
		return nil, err
	}
	owners, err := normalizeOwners(in.Owners)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.Subject != "" {
		by := actor.Subject
		salon.CreatedBy = &by
	}

	profiles, err := s.salons.Create(ctx, salon, owners)
	if err != nil {
		if errors.Is(err, repository.ErrEmailNotOwner) {
			return nil, conflict("owner email belongs to an account that is not a salon owner")
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("salon with this vtaNumber or email already exists")
		}
		return nil, storeErr("create salon", err)
	}
	s.cache.Invalidate(ctx)
	s.invite(ctx, salon, profiles)
	return salon, nil
}

func (s *SalonService) buildSalon(in CreateSalonInput) (*model.Salon, error) {
	salon := &model.Salon{
		Name:          strings.TrimSpace(in.Name),
		BusinessType:  strings.TrimSpace(in.BusinessType),
		VTANumber:     strings.TrimSpace(in.VTANumber),
		EmployeeCount: in.EmployeeCount,
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		PhoneNumber:   strings.TrimSpace(in.PhoneNumber),
		Country:       strings.TrimSpace(in.Country),
		Province:      strings.TrimSpace(in.Province),
		City:          strings.TrimSpace(in.City),
		ZipCode:       strings.TrimSpace(in.ZipCode),
		Status:        model.SalonStatusTrial,
		Plan:          model.PlanBasic,
	}
	switch {
	case salon.Name == "":
		return nil, invalid("name is required")
	case salon.VTANumber == "":
		return nil, invalid("vtaNumber is required")
	case salon.EmployeeCount < 0:
		return nil, invalid("employeeCount must not be negative")
	}
	if _, err := mail.ParseAddress(salon.Email); err != nil {
		return nil, invalid("email is invalid")
	}
	if p, ok := model.ParsePlan(in.InitialPlan); ok {
		salon.Plan = p
	}
	trialEnds, err := s.parseTrialPeriod(in.TrialPeriod)
	if err != nil {
		return nil, err
	}
	salon.TrialEndsAt = trialEnds
	return salon, nil
}

func (s *SalonService) parseTrialPeriod(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if days, err := strconv.Atoi(strings.TrimSuffix(v, "d")); err == nil {
		if days < 0 {
			return nil, invalid("trialPeriod must not be negative")
		}
		t := s.now().AddDate(0, 0, days)
		return &t, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, invalid("trialPeriod must be a date or a number of days")
}

func normalizeOwners(in []model.NewOwner) ([]model.NewOwner, error) {
	seen := make(map[string]bool, len(in))
	out := make([]model.NewOwner, 0, len(in))
	for _, o := range in {
		o.Email = strings.ToLower(strings.TrimSpace(o.Email))
		o.FirstName = strings.TrimSpace(o.FirstName)
		o.LastName = strings.TrimSpace(o.LastName)
		if _, err := mail.ParseAddress(o.Email); err != nil {
			return nil, invalid("owner email is invalid")
		}
		if seen[o.Email] {
			continue
		}
		seen[o.Email] = true
		out = append(out, o)
	}
	return out, nil
}

func (s *SalonService) invite(ctx context.Context, salon *model.Salon, profiles []model.OwnerProfile) {
	for _, op := range profiles {
		ev := queue.OwnerInvitedEvent{
			InvitationID: op.ID,
			SalonID:      salon.ID,
			SalonName:    salon.Name,
			PrincipalID:  op.PrincipalID,
			Email:        op.Email,
			FirstName:    op.FirstName,
			LastName:     op.LastName,
			InvitedAt:    s.now().Format(time.RFC3339),
		}
		if s.publisher == nil {
			s.logger.Info("owner invited", slog.String("invitation_id", op.ID), slog.String("salon_id", salon.ID))
			continue
		}
		if err := s.publisher.PublishOwnerInvited(ctx, ev); err != nil {
			s.logger.Warn("publish owner invitation failed",
				slog.String("invitation_id", op.ID), slog.Any("error", err))
		}
	}
}

// Get returns a live salon with its owners.
func (s *SalonService) Get(ctx context.Context, id string) (*model.Salon, error) {
	salon, err := s.salons.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get salon", err)
	}
	return salon, nil
}

// List answers the directory listing through the cache.
func (s *SalonService) List(ctx context.Context, f model.SalonFilter) (*model.SalonPage, error) {
	return s.cache.Query(ctx, f)
}

// Update applies u to the salon and records actor as the last editor.
func (s *SalonService) Update(ctx context.Context, actor *utils.Claims, id string, u model.SalonUpdate) (*model.Salon, error) {
	if u.Status != nil {
		st, ok := model.ParseSalonStatus(string(*u.Status))
		if !ok {
			return nil, invalid("unknown status")
		}
		u.Status = &st
	}
	if u.Plan != nil {
		p, ok := model.ParsePlan(string(*u.Plan))
		if !ok {
			return nil, invalid("unknown plan")
		}
		u.Plan = &p
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return nil, invalid("name must not be empty")
	}
	if u.EmployeeCount != nil && *u.EmployeeCount < 0 {
		return nil, invalid("employeeCount must not be negative")
	}
	if err := s.salons.Update(ctx, id, u, actorID(actor)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("update salon", err)
	}
	s.cache.Invalidate(ctx)
	return s.Get(ctx, id)
}

// SoftDelete hides the salon from reads and listings.
func (s *SalonService) SoftDelete(ctx context.Context, actor *utils.Claims, id string) error {
	if err := s.salons.SoftDelete(ctx, id, actorID(actor)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storeErr("soft delete salon", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// HardDelete removes the salon and its owner links for good.  It is refused
// in production.
func (s *SalonService) HardDelete(ctx context.Context, id string) error {
	if s.production {
		return ErrForbidden
	}
	if err := s.salons.HardDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storeErr("hard delete salon", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

func actorID(actor *utils.Claims) string {
	if actor == nil {
		return ""
	}
	return actor.Subject
}
