// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/zerotobillion/teapot-server/adapters/metrics"
	"github.com/zerotobillion/teapot-server/domain/admission"
	"github.com/zerotobillion/teapot-server/domain/brew"
	"github.com/zerotobillion/teapot-server/ports"
)

// BrewService runs the brewing state machine for every pot.
type BrewService struct {
	state    ports.BrewStateStore
	traffic  ports.TrafficCounter
	notifier ports.Notifier
	events   ports.EventRecorder
	clock    ports.Clock
	idGen    ports.IDGenerator
	metrics  *metrics.Collector // optional
	logger   zerolog.Logger

	// Dynamic configuration (hot-reloadable)
	dynamicCfg atomic.Pointer[DynamicConfig]
}

// DynamicConfig contains hot-reloadable configuration.
type DynamicConfig struct {
	ContentType  string
	Variants     []string
	GatedVariant string
	MinTraffic   int
}

// BrewDeps contains dependencies for BrewService.
type BrewDeps struct {
	State    ports.BrewStateStore
	Traffic  ports.TrafficCounter
	Notifier ports.Notifier
	Events   ports.EventRecorder
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Metrics  *metrics.Collector
	Logger   zerolog.Logger
}

// BrewConfig contains configuration for BrewService.
type BrewConfig struct {
	ContentType  string
	Variants     []string
	GatedVariant string
	MinTraffic   int
}

// NewBrewService creates a new brew service.
func NewBrewService(deps BrewDeps, cfg BrewConfig) *BrewService {
	s := &BrewService{
		state:    deps.State,
		traffic:  deps.Traffic,
		notifier: deps.Notifier,
		events:   deps.Events,
		clock:    deps.Clock,
		idGen:    deps.IDGen,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}

	// Set initial dynamic config
	s.UpdateConfig(cfg.ContentType, cfg.Variants, cfg.GatedVariant, cfg.MinTraffic)

	return s
}

// UpdateConfig updates the hot-reloadable configuration.
// This is thread-safe and can be called while handling requests.
func (s *BrewService) UpdateConfig(contentType string, variants []string, gatedVariant string, minTraffic int) {
	cfg := &DynamicConfig{
		ContentType:  contentType,
		Variants:     variants,
		GatedVariant: gatedVariant,
		MinTraffic:   minTraffic,
	}
	s.dynamicCfg.Store(cfg)
}

// getDynamicConfig returns the current dynamic configuration.
func (s *BrewService) getDynamicConfig() *DynamicConfig {
	return s.dynamicCfg.Load()
}

// Variants returns the currently supported variants.
func (s *BrewService) Variants() []string {
	return s.getDynamicConfig().Variants
}

// HandleResult represents the outcome of handling a request.
type HandleResult struct {
	Response brew.Response
	Error    *brew.ErrorResponse

	// Headers to attach to an error response (e.g. Alternates).
	Headers map[string]string
}

// Handle processes a BREW request against one pot. GET and other
// methods are resolved by the HTTP layer before this point.
func (s *BrewService) Handle(ctx context.Context, req brew.Request) HandleResult {
	cfg := s.getDynamicConfig()

	// Root path: enumerate the pots.
	if req.Variant == "" {
		return HandleResult{Response: brew.Response{
			Status:  300,
			Headers: map[string]string{"Alternates": brew.Alternates(cfg.Variants, cfg.ContentType)},
		}}
	}

	// 1. Variant must name a pot this server has (PURE)
	if !brew.SupportedVariant(cfg.Variants, req.Variant) {
		err := brew.ErrUnsupportedVariant(req.Variant)
		return HandleResult{Error: &err}
	}

	// 2. Content type gate (PURE)
	if req.ContentType != cfg.ContentType {
		err := brew.ErrContentType
		return HandleResult{
			Error:   &err,
			Headers: map[string]string{"Alternates": brew.Alternates(cfg.Variants, cfg.ContentType)},
		}
	}

	key := brew.ResolveKey(req.RemoteAddr, req.Variant)

	switch brew.ParseCommand(req.Body) {
	case brew.CommandStart:
		return s.handleStart(ctx, req, key, cfg)
	case brew.CommandStop:
		return s.handleStop(ctx, req, key)
	default:
		err := brew.ErrMalformedCommand
		return HandleResult{Error: &err}
	}
}

func (s *BrewService) handleStart(ctx context.Context, req brew.Request, key brew.RequestKey, cfg *DynamicConfig) HandleResult {
	brewing, err := s.state.Get(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key.String()).Msg("state lookup failed")
		e := brew.ErrInternal
		return HandleResult{Error: &e}
	}
	if brewing {
		e := brew.ErrAlreadyBrewing
		s.recordEvent(req, key, brew.ActionStart, e.Code, 0, 0)
		return HandleResult{Error: &e}
	}

	// The gated pot needs sustained traffic before it brews. The
	// admission probe itself counts as traffic.
	var count, threshold int
	if req.Variant == cfg.GatedVariant {
		threshold = cfg.MinTraffic
		count, err = s.traffic.Increment(ctx, key)
		if err != nil {
			s.logger.Error().Err(err).Str("key", key.String()).Msg("traffic increment failed")
			e := brew.ErrInternal
			return HandleResult{Error: &e}
		}

		if s.metrics != nil {
			if w, ok := s.traffic.(interface{ Seconds() int }); ok {
				s.metrics.TrafficWindowSeconds.Set(float64(w.Seconds()))
			}
		}

		decision := admission.Decide(count, threshold)
		if !decision.Admitted {
			if s.metrics != nil {
				s.metrics.AdmissionRejections.WithLabelValues(req.Variant).Inc()
			}
			e := brew.ErrTrafficTooLow(req.Variant, count, threshold)
			s.recordEvent(req, key, brew.ActionStart, e.Code, count, threshold)
			return HandleResult{Error: &e}
		}
	}

	// Commit the transition atomically so two racing starts cannot
	// both be accepted.
	swapped, err := s.state.CompareAndSet(ctx, key, false, true)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key.String()).Msg("state commit failed")
		e := brew.ErrInternal
		return HandleResult{Error: &e}
	}
	if !swapped {
		e := brew.ErrAlreadyBrewing
		s.recordEvent(req, key, brew.ActionStart, e.Code, count, threshold)
		return HandleResult{Error: &e}
	}

	if s.metrics != nil {
		s.metrics.BrewsInFlight.Inc()
	}
	s.logger.Info().
		Str("key", key.String()).
		Str("variant", req.Variant).
		Int("traffic", count).
		Msg("brewing started")
	s.recordEvent(req, key, brew.ActionStart, brew.OutcomeAccepted, count, threshold)

	return HandleResult{Response: brew.Response{Status: 202, Body: "Brewing"}}
}

func (s *BrewService) handleStop(ctx context.Context, req brew.Request, key brew.RequestKey) HandleResult {
	brewing, err := s.state.Get(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key.String()).Msg("state lookup failed")
		e := brew.ErrInternal
		return HandleResult{Error: &e}
	}
	if !brewing {
		e := brew.ErrNotBrewing
		s.recordEvent(req, key, brew.ActionStop, e.Code, 0, 0)
		return HandleResult{Error: &e}
	}

	if req.Contact == "" {
		e := brew.ErrMissingContact
		s.recordEvent(req, key, brew.ActionStop, e.Code, 0, 0)
		return HandleResult{Error: &e}
	}

	host := req.Host
	if host == "" {
		host = "Unknown"
	}
	notification := ports.Notification{
		Subject: fmt.Sprintf("Someone has finished a brew - %s", req.Contact),
		Message: fmt.Sprintf("Client has successfully brewed tea %q from IP %s, using mail %q and host %q.",
			req.Variant, req.RemoteAddr, req.Contact, host),
	}

	// Notify before releasing the pot: when delivery fails the pot
	// stays busy so the client can retry the stop.
	if err := s.notifier.Send(ctx, notification); err != nil {
		if s.metrics != nil {
			s.metrics.NotifyFailures.Inc()
		}
		s.logger.Error().Err(err).Str("key", key.String()).Msg("completion notification failed")
		e := brew.ErrNotifyFailed
		s.recordEvent(req, key, brew.ActionStop, e.Code, 0, 0)
		return HandleResult{Error: &e}
	}

	if err := s.state.Set(ctx, key, false); err != nil {
		s.logger.Error().Err(err).Str("key", key.String()).Msg("state release failed")
		e := brew.ErrInternal
		return HandleResult{Error: &e}
	}

	if s.metrics != nil {
		s.metrics.BrewsInFlight.Dec()
	}
	s.logger.Info().
		Str("key", key.String()).
		Str("variant", req.Variant).
		Str("contact", req.Contact).
		Msg("brewing finished")
	s.recordEvent(req, key, brew.ActionStop, brew.OutcomeFinished, 0, 0)

	return HandleResult{Response: brew.Response{Status: 201, Body: "Finished"}}
}

// recordEvent queues an audit event; a nil recorder disables the log.
func (s *BrewService) recordEvent(req brew.Request, key brew.RequestKey, action, outcome string, count, threshold int) {
	if s.events == nil {
		return
	}
	s.events.Record(brew.Event{
		ID:         s.idGen.New(),
		Key:        key.String(),
		Variant:    req.Variant,
		Action:     action,
		Outcome:    outcome,
		Count:      count,
		Threshold:  threshold,
		ClientAddr: req.RemoteAddr,
		Contact:    req.Contact,
		Timestamp:  s.clock.Now(),
	})
}
