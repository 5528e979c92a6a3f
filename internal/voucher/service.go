package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-voucher/internal/events"
	"github.com/noah-isme/backend-voucher/internal/obs"
)

// DefaultValidityMonths is the fixed lifetime of a newly created voucher.
const DefaultValidityMonths = 2

// Store is the durable keyed storage of vouchers. FindByID returns
// ErrNotFound for unknown ids; DeleteByID is a no-op for unknown ids.
type Store interface {
	FindByID(ctx context.Context, id string) (Voucher, error)
	FindAll(ctx context.Context) ([]Voucher, error)
	Save(ctx context.Context, v Voucher) (Voucher, error)
	DeleteByID(ctx context.Context, id string) error
}

// Emitter receives lifecycle events. *events.Bus satisfies it.
type Emitter interface {
	Emit(ctx context.Context, topic, key string, payload any) error
}

// Service manages the voucher lifecycle and evaluates vouchers against carts.
type Service struct {
	Store          Store
	Clock          Clock
	Events         Emitter
	Logger         *zerolog.Logger
	ValidityMonths int
}

// Create stamps creation and expiration dates, forces the voucher active and
// persists it. Callers cannot choose the expiration window.
func (s *Service) Create(ctx context.Context, variant Variant, details Details) (Voucher, error) {
	if err := s.ready(); err != nil {
		return Voucher{}, err
	}
	v := Voucher{Variant: variant, Details: details}
	if _, err := checkedDetails(v); err != nil {
		obs.RecordVoucherLifecycle("create", "malformed")
		return Voucher{}, err
	}
	today := s.Clock.Today()
	v.Active = true
	v.CreationDate = today
	v.ExpirationDate = today.AddMonths(s.validityMonths())

	saved, err := s.Store.Save(ctx, v)
	if err != nil {
		obs.RecordVoucherLifecycle("create", "error")
		return Voucher{}, fmt.Errorf("save voucher: %w", err)
	}
	obs.RecordVoucherLifecycle("create", "ok")
	s.emit(ctx, events.TopicVoucherCreated, saved.ID, saved)
	return saved, nil
}

// Update replaces the variant and details of an existing voucher while
// keeping its creation date, expiration date and active flag.
func (s *Service) Update(ctx context.Context, id string, variant Variant, details Details) (Voucher, error) {
	if err := s.ready(); err != nil {
		return Voucher{}, err
	}
	existing, err := s.Store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.RecordVoucherLifecycle("update", "not_found")
		}
		return Voucher{}, err
	}
	next := Voucher{
		ID:             existing.ID,
		Variant:        variant,
		Details:        details,
		Active:         existing.Active,
		CreationDate:   existing.CreationDate,
		ExpirationDate: existing.ExpirationDate,
	}
	if _, err := checkedDetails(next); err != nil {
		obs.RecordVoucherLifecycle("update", "malformed")
		return Voucher{}, err
	}
	saved, err := s.Store.Save(ctx, next)
	if err != nil {
		obs.RecordVoucherLifecycle("update", "error")
		return Voucher{}, fmt.Errorf("save voucher: %w", err)
	}
	obs.RecordVoucherLifecycle("update", "ok")
	s.emit(ctx, events.TopicVoucherUpdated, saved.ID, saved)
	return saved, nil
}

// Delete removes the voucher. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.Store.DeleteByID(ctx, id); err != nil {
		obs.RecordVoucherLifecycle("delete", "error")
		return fmt.Errorf("delete voucher: %w", err)
	}
	obs.RecordVoucherLifecycle("delete", "ok")
	s.emit(ctx, events.TopicVoucherDeleted, id, map[string]string{"id": id})
	return nil
}

// List returns every stored voucher in store order.
func (s *Service) List(ctx context.Context) ([]Voucher, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Store.FindAll(ctx)
}

// Get returns the voucher with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Voucher, error) {
	if err := s.ready(); err != nil {
		return Voucher{}, err
	}
	return s.Store.FindByID(ctx, id)
}

// ListActive returns the vouchers that are usable today, in store order.
func (s *Service) ListActive(ctx context.Context) ([]Voucher, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	today := s.Clock.Today()
	usable := make([]Voucher, 0, len(all))
	for _, v := range all {
		if IsCurrentlyUsable(v, today) {
			usable = append(usable, v)
		}
	}
	return usable, nil
}

// Applicable returns the usable vouchers whose condition cart satisfies.
func (s *Service) Applicable(ctx context.Context, cart Cart) ([]Voucher, error) {
	usable, err := s.ListActive(ctx)
	if err != nil {
		obs.RecordVoucherApplicable("error")
		return nil, err
	}
	out := make([]Voucher, 0, len(usable))
	for _, v := range usable {
		ok, err := Matches(cart, v)
		if err != nil {
			obs.RecordVoucherApplicable("malformed")
			return nil, fmt.Errorf("voucher %s: %w", v.ID, err)
		}
		if ok {
			out = append(out, v)
		}
	}
	obs.RecordVoucherApplicable("ok")
	return out, nil
}

// Apply looks up the voucher and applies it to cart. It fails with
// ErrNotFound for unknown ids and ErrIneligible when the voucher is inactive
// or expired. It never writes to the store.
func (s *Service) Apply(ctx context.Context, id string, cart Cart) (_ AppliedCart, err error) {
	if err := s.ready(); err != nil {
		return AppliedCart{}, err
	}
	ctx, span := otel.Tracer("voucher.Service").Start(ctx, "VoucherService.Apply")
	span.SetAttributes(attribute.String("voucher.id", id), attribute.Int("cart.items", len(cart.Items)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	v, err := s.Store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.RecordVoucherApply("unknown", "not_found")
		}
		return AppliedCart{}, err
	}
	if !IsCurrentlyUsable(v, s.Clock.Today()) {
		obs.RecordVoucherApply(string(v.Variant), "ineligible")
		return AppliedCart{}, fmt.Errorf("voucher %s: %w", v.ID, ErrIneligible)
	}
	out, err := Apply(cart, v)
	if err != nil {
		obs.RecordVoucherApply(string(v.Variant), "malformed")
		return AppliedCart{}, fmt.Errorf("voucher %s: %w", v.ID, err)
	}
	obs.RecordVoucherApply(string(v.Variant), "ok")
	return out, nil
}

// SweepExpired deactivates every voucher that expired before today.
func (s *Service) SweepExpired(ctx context.Context) (SweepResult, error) {
	if err := s.ready(); err != nil {
		return SweepResult{}, err
	}
	ctx, span := otel.Tracer("voucher.Service").Start(ctx, "VoucherService.SweepExpired")
	defer span.End()
	start := time.Now()
	today := s.Clock.Today()
	all, err := s.Store.FindAll(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list vouchers: %w", err)
	}
	result, err := Sweep(ctx, today, all, s.Store)
	logger := s.logger()
	for _, v := range result.Updated {
		logger.Info().Str("voucher_id", v.ID).Str("expiration_date", v.ExpirationDate.String()).Msg("voucher deactivated")
		s.emit(ctx, events.TopicVoucherDeactivated, v.ID, v)
	}
	obs.RecordVoucherSweep(len(result.Updated), time.Since(start))
	evt := logger.Info()
	if err != nil {
		evt = logger.Error().Err(err)
	}
	evt.Str("today", today.String()).
		Int("scanned", len(all)).
		Int("deactivated", len(result.Updated)).
		Msg("voucher sweep finished")
	return result, err
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil || s.Clock == nil {
		return errors.New("voucher service not configured")
	}
	return nil
}

func (s *Service) validityMonths() int {
	if s.ValidityMonths > 0 {
		return s.ValidityMonths
	}
	return DefaultValidityMonths
}

func (s *Service) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// emit publishes a lifecycle event. Publishing problems are logged only; the
// store write has already succeeded.
func (s *Service) emit(ctx context.Context, topic, id string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, topic, id, payload); err != nil {
		s.logger().Warn().Err(err).Str("topic", topic).Str("voucher_id", id).Msg("publish voucher event")
	}
}
