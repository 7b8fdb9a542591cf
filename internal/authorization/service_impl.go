package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor actorcontext.Actor, object, action string) error {
	if strings.TrimSpace(actor.ID) == "" {
		return errs.Forbidden("caller identity required")
	}
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return errs.Validation("action", "invalid_action", "object and action are required")
	}

	subject := actor.Subject()
	if err := s.ensureGrouping(subject, roleName(actor.Role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Info("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return errs.Forbidden(fmt.Sprintf("role %s may not %s %s", actor.Role, action, object))
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject, so a role change in
// the upstream identity takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject, role string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == role {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, role)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, role)
	return err
}

func roleName(role actorcontext.Role) string {
	return "role:" + strings.ToLower(string(role))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	admin := roleName(actorcontext.RoleAdmin)
	customer := roleName(actorcontext.RoleCustomer)

	policies := [][]string{
		// Admin runs the whole workflow
		{admin, ObjectOrder, "*"},
		{admin, ObjectShipment, "*"},
		{admin, ObjectAllocation, "*"},
		{admin, ObjectPricingMode, "*"},
		{admin, ObjectReconcileRun, "*"},

		// Customers work on their own orders; ownership is checked by the order service
		{customer, ObjectOrder, ActionView},
		{customer, ObjectOrder, ActionCreate},
		{customer, ObjectOrder, ActionUpdate},
		{customer, ObjectOrder, ActionOrderSubmit},
		{customer, ObjectOrder, ActionOrderCounter},
		{customer, ObjectOrder, ActionOrderAccept},
		{customer, ObjectOrder, ActionOrderDeleteItems},
		{customer, ObjectPricingMode, ActionView},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
