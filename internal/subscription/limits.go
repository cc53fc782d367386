package subscription

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

// WarnThreshold is the usage percentage at which callers should surface a
// non-blocking warning.
const WarnThreshold = 80

// UsageCounter counts current usage of a resource, scoped by tenant and,
// where the resource is branch-scoped, by branch. Implemented by the storage
// layer.
type UsageCounter interface {
	CountResource(ctx context.Context, scope tenant.Scope, resource models.ResourceType) (int, error)
}

// Result is the outcome of a limit check.
type Result struct {
	Resource   models.ResourceType `json:"resource"`
	Allowed    bool                `json:"allowed"`
	Current    int                 `json:"current"`
	Limit      int                 `json:"limit"`
	Percentage int                 `json:"percentage"`
	Warning    bool                `json:"warning"`
	Message    string              `json:"message"`
}

// Checker decides whether a tenant may create another resource of a given
// type. Limits bite only while the tenant is restricted; active tenants are
// always allowed, though counts are still reported for warnings.
type Checker struct {
	counter UsageCounter
	now     func() time.Time
}

// NewChecker creates a limit checker backed by the given usage counter.
func NewChecker(counter UsageCounter) *Checker {
	return &Checker{counter: counter, now: time.Now}
}

// CheckLimit evaluates one resource type against the tenant's subscription.
// A usage-count failure denies the write; uncertainty never grants access.
func (c *Checker) CheckLimit(ctx context.Context, scope tenant.Scope, sub *models.Subscription, resource models.ResourceType) Result {
	res := Result{Resource: resource}

	if !resource.Valid() {
		res.Message = fmt.Sprintf("unknown resource type %q", resource)
		return res
	}

	state := Evaluate(sub, c.now())

	var limit int
	if sub != nil {
		limit = sub.Limits.For(resource)
	}
	res.Limit = limit

	current, err := c.counter.CountResource(ctx, scope, resource)
	if err != nil {
		log.Error().Err(err).
			Str("tenant_id", scope.TenantID.String()).
			Str("resource", string(resource)).
			Msg("usage count failed, denying write")
		res.Message = "unable to verify usage, please try again"
		return res
	}
	res.Current = current

	// A limit of zero or below means the resource is unlimited.
	unlimited := limit <= 0

	if !unlimited {
		res.Percentage = int(math.Round(float64(current) / float64(limit) * 100))
		res.Warning = res.Percentage >= WarnThreshold
	}

	switch {
	case !state.Restricted:
		res.Allowed = true
	case unlimited:
		res.Allowed = true
	case current < limit:
		res.Allowed = true
	default:
		res.Message = fmt.Sprintf("%s limit reached (%d of %d), renew your subscription to continue", resource, current, limit)
	}

	if res.Allowed && res.Warning {
		res.Message = fmt.Sprintf("%s usage at %d%% of limit", resource, res.Percentage)
	}

	return res
}

// Snapshot checks every limited resource at once, for the limits status
// endpoint.
func (c *Checker) Snapshot(ctx context.Context, scope tenant.Scope, sub *models.Subscription) []Result {
	results := make([]Result, 0, len(models.AllResourceTypes))
	for _, resource := range models.AllResourceTypes {
		results = append(results, c.CheckLimit(ctx, scope, sub, resource))
	}
	return results
}
