package subscription

import (
	"context"
	"errors"
	"fmt"

	"props-bible/core/store"
	"props-bible/core/utils"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrLimitReached    = errors.New("subscription limit reached")
	ErrUnknownResource = errors.New("unknown resource")
	ErrUnknownOwner    = errors.New("unknown owner")
)

type Decision struct {
	Allowed   bool   `json:"allowed"`
	Plan      string `json:"plan"`
	Resource  string `json:"resource"`
	ScopeID   int64  `json:"scope_id,omitempty"`
	Limit     int    `json:"limit"`
	Current   int    `json:"current"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message,omitempty"`
}

// LimitError carries the denied decision; errors.Is(err, ErrLimitReached) holds.
type LimitError struct {
	Decision Decision
}

func (e *LimitError) Error() string {
	return e.Decision.Message
}

func (e *LimitError) Unwrap() error {
	return ErrLimitReached
}

type Service struct {
	users       store.UsersStore
	counters    store.CountersStore
	defaultPlan string
	logger      *utils.Logger
	denials     *prometheus.CounterVec
}

func NewService(users store.UsersStore, counters store.CountersStore, defaultPlan string, logger *utils.Logger) *Service {
	if !IsKnownPlan(defaultPlan) {
		defaultPlan = "free"
	}
	return &Service{
		users:       users,
		counters:    counters,
		defaultPlan: normalizePlan(defaultPlan),
		logger:      logger,
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "props_limit_denials_total",
			Help: "Resource creations denied by the owner's subscription plan.",
		}, []string{"resource", "plan"}),
	}
}

func (s *Service) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.denials}
}

func (s *Service) DefaultPlan() string {
	return s.defaultPlan
}

// PlanFor resolves the owner's plan, falling back to the default plan for unknown names.
func (s *Service) PlanFor(ctx context.Context, ownerID int64) (Plan, error) {
	u, _, err := s.users.Get(ctx, ownerID)
	if err != nil {
		return Plan{}, err
	}
	if u == nil {
		return Plan{}, ErrUnknownOwner
	}
	if p, ok := GetPlan(u.Plan); ok {
		return p, nil
	}
	p, _ := GetPlan(s.defaultPlan)
	return p, nil
}

func decide(plan Plan, resource string, scopeID int64, limit, current int) Decision {
	d := Decision{Plan: plan.Name, Resource: resource, ScopeID: scopeID, Limit: limit, Current: current}
	if limit == Unlimited {
		d.Allowed = true
		d.Remaining = Unlimited
		return d
	}
	d.Remaining = limit - current
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	d.Allowed = current < limit
	if !d.Allowed {
		d.Message = fmt.Sprintf("%s plan allows %d %s", plan.Name, limit, resource)
	}
	return d
}

// Check reports whether one more resource could be created right now.
func (s *Service) Check(ctx context.Context, ownerID int64, resource string, scopeID int64) (Decision, error) {
	plan, err := s.PlanFor(ctx, ownerID)
	if err != nil {
		return Decision{}, err
	}
	limit, ok := plan.Limit(resource)
	if !ok {
		return Decision{}, ErrUnknownResource
	}
	current, err := s.counters.Get(ctx, ownerID, resource, scopeID)
	if err != nil {
		return Decision{}, err
	}
	return decide(plan, resource, scopeID, limit, current), nil
}

// Acquire reserves one slot before the resource is written. Callers release it
// if the write fails.
func (s *Service) Acquire(ctx context.Context, ownerID int64, resource string, scopeID int64) (Decision, error) {
	plan, err := s.PlanFor(ctx, ownerID)
	if err != nil {
		return Decision{}, err
	}
	limit, ok := plan.Limit(resource)
	if !ok {
		return Decision{}, ErrUnknownResource
	}
	n, err := s.counters.Acquire(ctx, ownerID, resource, scopeID, limit)
	if errors.Is(err, store.ErrLimitReached) {
		current, _ := s.counters.Get(ctx, ownerID, resource, scopeID)
		d := decide(plan, resource, scopeID, limit, current)
		d.Allowed = false
		if d.Message == "" {
			d.Message = fmt.Sprintf("%s plan allows %d %s", plan.Name, limit, resource)
		}
		s.denials.WithLabelValues(resource, plan.Name).Inc()
		if s.logger != nil {
			s.logger.Printf("limit denied owner=%d resource=%s scope=%d plan=%s limit=%d", ownerID, resource, scopeID, plan.Name, limit)
		}
		return d, &LimitError{Decision: d}
	}
	if err != nil {
		return Decision{}, err
	}
	d := decide(plan, resource, scopeID, limit, n)
	d.Allowed = true
	return d, nil
}

func (s *Service) Release(ctx context.Context, ownerID int64, resource string, scopeID int64) error {
	if !IsKnownResource(resource) {
		return ErrUnknownResource
	}
	return s.counters.Release(ctx, ownerID, resource, scopeID)
}

// ReleaseQuiet is for rollback and cleanup paths where the caller already has an error to report.
func (s *Service) ReleaseQuiet(ctx context.Context, ownerID int64, resource string, scopeID int64) {
	if err := s.Release(ctx, ownerID, resource, scopeID); err != nil && s.logger != nil {
		s.logger.Errorf("limit release owner=%d resource=%s: %v", ownerID, resource, err)
	}
}

// Usage lists every per-owner resource with its limit and current count.
func (s *Service) Usage(ctx context.Context, ownerID int64) ([]Decision, error) {
	plan, err := s.PlanFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]Decision, 0, len(OwnerResources))
	for _, res := range OwnerResources {
		limit, _ := plan.Limit(res)
		current, err := s.counters.Get(ctx, ownerID, res, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, decide(plan, res, 0, limit, current))
	}
	return out, nil
}

func (s *Service) Recount(ctx context.Context, ownerID int64) ([]store.Counter, error) {
	return s.counters.Recount(ctx, ownerID)
}
