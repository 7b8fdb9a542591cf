package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/config"
	"github.com/smallbiznis/shipledger/internal/costing"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/observability/logger"
	"github.com/smallbiznis/shipledger/internal/observability/metrics"
	"github.com/smallbiznis/shipledger/internal/order/domain"
	pricingdomain "github.com/smallbiznis/shipledger/internal/pricingmode/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Resolver pricingdomain.Resolver
	Policy   *config.PolicyHolder `optional:"true"`
	Metrics  *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	resolver pricingdomain.Resolver
	policy   *config.PolicyHolder
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		resolver: p.Resolver,
		policy:   p.Policy,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.OrderView, error) {
	actor, err := actorcontext.Require(ctx)
	if err != nil {
		return nil, err
	}

	type line struct {
		productID string
		name      string
		qty       float64
		buy       decimal.Decimal
	}
	var lines []*line
	byProduct := map[string]*line{}
	for _, l := range req.Lines {
		pid := strings.TrimSpace(l.ProductID)
		if pid == "" || l.Quantity <= 0 {
			continue
		}
		if l.BuyPriceGBP.IsNegative() {
			return nil, errs.Validation("buy_price_gbp", "invalid_price", "buy_price_gbp must not be negative: "+pid)
		}
		if existing, ok := byProduct[pid]; ok {
			existing.qty += l.Quantity
			continue
		}
		entry := &line{productID: pid, name: strings.TrimSpace(l.Name), qty: l.Quantity, buy: costing.RoundGBP(l.BuyPriceGBP)}
		byProduct[pid] = entry
		lines = append(lines, entry)
	}
	if len(lines) == 0 {
		return nil, errs.Validation("lines", "empty_order", "order must contain at least one line with quantity > 0")
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:             s.genID.Generate().Int64(),
		Name:           strings.TrimSpace(req.Name),
		Status:         domain.StatusDraft,
		CreatorID:      actor.ID,
		CounterEnabled: true,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// Only admins decide whether a customer sees GBP prices.
	if actor.IsAdmin() {
		order.CreatorCanSeePriceGBP = req.CreatorCanSeePriceGBP
	}

	items := make([]*domain.OrderItem, 0, len(lines))
	for i, l := range lines {
		items = append(items, &domain.OrderItem{
			ID:              s.genID.Generate().Int64(),
			OrderID:         order.ID,
			LineNo:          i + 1,
			ProductID:       l.productID,
			ProductName:     l.name,
			OrderedQuantity: l.qty,
			BuyPriceGBP:     l.buy,
			RemainingQty:    l.qty,
			ItemStatus:      domain.ItemNotStarted,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		order.TotalOrderQty += l.qty
	}
	order.TotalRemainingQty = order.TotalOrderQty

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Create(ctx, tx, order, items)
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int("lines", len(items)),
	)
	return &domain.OrderView{Order: order, Items: items}, nil
}

func (s *Service) Submit(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.simpleTransition(ctx, orderID, domain.StatusSubmitted, false)
}

func (s *Service) AcceptOffer(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.simpleTransition(ctx, orderID, domain.StatusFinalized, false)
}

func (s *Service) StartProcessing(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.simpleTransition(ctx, orderID, domain.StatusProcessing, true)
}

func (s *Service) Cancel(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.simpleTransition(ctx, orderID, domain.StatusCancelled, true)
}

func (s *Service) simpleTransition(ctx context.Context, orderID int64, to domain.Status, adminOnly bool) (*domain.Order, error) {
	actor, err := s.caller(ctx, adminOnly)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err = s.loadOwned(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}
		return s.transition(ctx, tx, actor, order, to, nil)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) Price(ctx context.Context, req domain.PriceRequest) (*domain.Order, error) {
	actor, err := actorcontext.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	modeID := strings.TrimSpace(req.PricingModeID)
	if modeID == "" {
		return nil, errs.Required("pricing_mode_id")
	}
	defaultRate := s.policy.Get().Pricing.DefaultProfitRate
	if req.ProfitRate != nil {
		defaultRate = *req.ProfitRate
	}
	if defaultRate < 0 {
		return nil, errs.Validation("profit_rate", "invalid_profit_rate", "profit_rate must not be negative")
	}

	overrides := make(map[int64]domain.ItemPricing, len(req.Items))
	for _, o := range req.Items {
		if o.ProfitRate != nil && *o.ProfitRate < 0 {
			return nil, errs.Validation("profit_rate", "invalid_profit_rate", fmt.Sprintf("profit_rate must not be negative for item %d", o.OrderItemID))
		}
		overrides[o.OrderItemID] = o
	}

	var order *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err = s.loadOwned(ctx, tx, actor, req.OrderID)
		if err != nil {
			return err
		}
		if err := domain.CanTransition(actor.Role, order.ID, order.Status, domain.StatusPriced); err != nil {
			return err
		}

		modes := map[string]*pricingdomain.PricingMode{}
		resolve := func(id string) (*pricingdomain.PricingMode, error) {
			if m, ok := modes[id]; ok {
				return m, nil
			}
			m, err := s.resolver.Resolve(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			modes[id] = m
			return m, nil
		}
		if _, err := resolve(modeID); err != nil {
			return err
		}

		items, err := s.itemsByID(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		for id := range overrides {
			if _, ok := items[id]; !ok {
				return errs.NotFound("order_item", id)
			}
		}

		now := s.clock.Now()
		for _, item := range sortedItems(items) {
			override := overrides[item.ID]
			itemModeID := modeID
			if override.PricingModeID != nil && strings.TrimSpace(*override.PricingModeID) != "" {
				itemModeID = strings.TrimSpace(*override.PricingModeID)
			}
			mode, err := resolve(itemModeID)
			if err != nil {
				return err
			}

			fields := map[string]any{
				"pricing_mode_id": itemModeID,
				"updated_at":      now,
			}
			rate := defaultRate
			if item.ProfitRate != nil {
				rate = *item.ProfitRate
			} else {
				if override.ProfitRate != nil {
					rate = *override.ProfitRate
				}
				fields["profit_rate"] = rate
			}
			if mode.Currency == pricingdomain.CurrencyGBP {
				markup := decimal.NewFromInt(1).Add(decimal.NewFromFloat(rate))
				fields["offered_unit_gbp"] = decimal.NewNullDecimal(costing.RoundGBP(item.BuyPriceGBP.Mul(markup)))
			}
			if err := s.repo.UpdateItem(ctx, tx, item.ID, fields); err != nil {
				return err
			}
		}
		return s.transition(ctx, tx, actor, order, domain.StatusPriced, nil)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) Counter(ctx context.Context, req domain.CounterRequest) (*domain.Order, error) {
	actor, err := actorcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, errs.Required("items")
	}

	var order *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err = s.loadOwned(ctx, tx, actor, req.OrderID)
		if err != nil {
			return err
		}
		if err := domain.CanTransition(actor.Role, order.ID, order.Status, domain.StatusUnderReview); err != nil {
			return err
		}
		if !order.CounterEnabled {
			return errs.Forbidden("counter offers are disabled for this order")
		}
		items, err := s.itemsByID(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		for _, c := range req.Items {
			if _, ok := items[c.OrderItemID]; !ok {
				return errs.NotFound("order_item", c.OrderItemID)
			}
			fields := map[string]any{"updated_at": now}
			if c.CustomerUnitGBP != nil {
				if c.CustomerUnitGBP.IsNegative() {
					return errs.Validation("customer_unit_gbp", "invalid_price", "customer_unit_gbp must not be negative")
				}
				fields["customer_unit_gbp"] = decimal.NewNullDecimal(costing.RoundGBP(*c.CustomerUnitGBP))
			}
			if c.CustomerUnitBDT != nil {
				if *c.CustomerUnitBDT < 0 {
					return errs.Validation("customer_unit_bdt", "invalid_price", "customer_unit_bdt must not be negative")
				}
				fields["customer_unit_bdt"] = costing.RoundBDT(decimal.NewFromFloat(*c.CustomerUnitBDT))
			}
			if err := s.repo.UpdateItem(ctx, tx, c.OrderItemID, fields); err != nil {
				return err
			}
		}
		return s.transition(ctx, tx, actor, order, domain.StatusUnderReview, nil)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) Finalize(ctx context.Context, req domain.FinalizeRequest) (*domain.Order, error) {
	actor, err := actorcontext.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err = s.loadOwned(ctx, tx, actor, req.OrderID)
		if err != nil {
			return err
		}
		if err := domain.CanTransition(actor.Role, order.ID, order.Status, domain.StatusFinalized); err != nil {
			return err
		}
		if len(req.Items) > 0 {
			items, err := s.itemsByID(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			now := s.clock.Now()
			for _, f := range req.Items {
				if _, ok := items[f.OrderItemID]; !ok {
					return errs.NotFound("order_item", f.OrderItemID)
				}
				fields := map[string]any{"updated_at": now}
				if f.FinalUnitGBP != nil {
					fields["final_unit_gbp"] = decimal.NewNullDecimal(costing.RoundGBP(*f.FinalUnitGBP))
				}
				if f.FinalUnitBDT != nil {
					fields["final_unit_bdt"] = costing.RoundBDT(decimal.NewFromFloat(*f.FinalUnitBDT))
				}
				if err := s.repo.UpdateItem(ctx, tx, f.OrderItemID, fields); err != nil {
					return err
				}
			}
		}
		return s.transition(ctx, tx, actor, order, domain.StatusFinalized, nil)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrder patches the order name and the counter offer switch. Customers
// may rename their own drafts; only admins toggle counter offers.
func (s *Service) UpdateOrder(ctx context.Context, req domain.UpdateOrderRequest) (*domain.Order, error) {
	actor, err := actorcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.Name == nil && req.CounterEnabled == nil {
		return nil, errs.Validation("patch", "empty_patch", "supported fields: name, counter_enabled")
	}
	if req.CounterEnabled != nil && !actor.IsAdmin() {
		return nil, errs.Forbidden("only admins can change counter_enabled")
	}

	var order *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err = s.loadOwned(ctx, tx, actor, req.OrderID)
		if err != nil {
			return err
		}
		if order.Status == domain.StatusDelivered {
			return errs.Forbidden("order is delivered; it can no longer be edited")
		}
		if !actor.IsAdmin() && order.Status != domain.StatusDraft {
			return errs.Forbidden(fmt.Sprintf("order is read-only in status %s", order.Status))
		}

		fields := map[string]any{"updated_at": s.clock.Now()}
		if req.Name != nil {
			fields["name"] = strings.TrimSpace(*req.Name)
		}
		if req.CounterEnabled != nil {
			fields["counter_enabled"] = *req.CounterEnabled
		}
		if err := s.touch(ctx, tx, order, fields); err != nil {
			return err
		}
		if req.Name != nil {
			order.Name = fields["name"].(string)
		}
		if req.CounterEnabled != nil {
			order.CounterEnabled = *req.CounterEnabled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteItems removes lines from an order. Customers may only trim their own
// drafts; admins may not remove lines once shipping has started.
func (s *Service) DeleteItems(ctx context.Context, req domain.DeleteItemsRequest) (int64, error) {
	actor, err := actorcontext.Require(ctx)
	if err != nil {
		return 0, err
	}
	if len(req.OrderItemIDs) == 0 {
		return 0, errs.Required("order_item_ids")
	}

	var deleted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.loadOwned(ctx, tx, actor, req.OrderID)
		if err != nil {
			return err
		}
		switch {
		case order.Status == domain.StatusDelivered:
			return errs.Forbidden("order is delivered; items are locked")
		case !actor.IsAdmin() && order.Status != domain.StatusDraft:
			return errs.Forbidden(fmt.Sprintf("customer cannot delete items while order is %s", order.Status))
		case order.Status == domain.StatusProcessing, order.Status == domain.StatusPartiallyDelivered:
			return errs.Forbidden(fmt.Sprintf("cannot delete items while order is %s", order.Status))
		}

		items, err := s.itemsByID(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		for _, id := range req.OrderItemIDs {
			if _, ok := items[id]; !ok {
				return errs.NotFound("order_item", id)
			}
		}

		deleted, err = s.repo.DeleteItems(ctx, tx, order.ID, req.OrderItemIDs)
		if err != nil {
			return err
		}
		if err := s.touch(ctx, tx, order, map[string]any{"updated_at": s.clock.Now()}); err != nil {
			return err
		}
		logger.WithContext(ctx, s.log).Info("order items deleted",
			zap.Int64("order_id", order.ID),
			zap.Int64("deleted", deleted),
		)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *Service) UpdateItems(ctx context.Context, req domain.UpdateItemsRequest) ([]*domain.OrderItem, error) {
	actor, err := actorcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, errs.Required("items")
	}

	var result []*domain.OrderItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.loadOwned(ctx, tx, actor, req.OrderID)
		if err != nil {
			return err
		}
		// Shipping is underway in both states; only allocations may change.
		guardStatus := order.Status
		if guardStatus == domain.StatusPartiallyDelivered {
			guardStatus = domain.StatusProcessing
		}

		items, err := s.itemsByID(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		for _, patch := range req.Items {
			if _, ok := items[patch.OrderItemID]; !ok {
				return errs.NotFound("order_item", patch.OrderItemID)
			}
			if err := domain.CanEditItemFields(actor.Role, guardStatus, patch.Fields()); err != nil {
				return err
			}
			fields, err := s.patchFields(ctx, tx, patch)
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				continue
			}
			fields["updated_at"] = now
			if err := s.repo.UpdateItem(ctx, tx, patch.OrderItemID, fields); err != nil {
				return err
			}
		}

		if err := s.touch(ctx, tx, order, map[string]any{"updated_at": now}); err != nil {
			return err
		}
		result, err = s.repo.ListItems(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) patchFields(ctx context.Context, tx *gorm.DB, p domain.ItemPatch) (map[string]any, error) {
	fields := map[string]any{}
	if p.ProductID != nil {
		pid := strings.TrimSpace(*p.ProductID)
		if pid == "" {
			return nil, errs.Required(domain.FieldProductID)
		}
		fields[domain.FieldProductID] = pid
	}
	if p.ProductName != nil {
		fields[domain.FieldProductName] = strings.TrimSpace(*p.ProductName)
	}
	if p.OrderedQuantity != nil {
		if *p.OrderedQuantity <= 0 {
			return nil, errs.Validation(domain.FieldOrderedQuantity, "invalid_quantity", "ordered_quantity must be > 0")
		}
		fields[domain.FieldOrderedQuantity] = *p.OrderedQuantity
	}
	if p.PricingModeID != nil {
		id := strings.TrimSpace(*p.PricingModeID)
		if id == "" {
			fields[domain.FieldPricingModeID] = nil
		} else {
			if _, err := s.resolver.Resolve(ctx, tx, id); err != nil {
				return nil, err
			}
			fields[domain.FieldPricingModeID] = id
		}
	}
	if p.ProfitRate != nil {
		if *p.ProfitRate < 0 {
			return nil, errs.Validation(domain.FieldProfitRate, "invalid_profit_rate", "profit_rate must not be negative")
		}
		fields[domain.FieldProfitRate] = *p.ProfitRate
	}
	setGBP := func(name string, v *decimal.Decimal) {
		if v != nil {
			fields[name] = decimal.NewNullDecimal(costing.RoundGBP(*v))
		}
	}
	setBDT := func(name string, v *float64) {
		if v != nil {
			fields[name] = costing.RoundBDT(decimal.NewFromFloat(*v))
		}
	}
	setGBP(domain.FieldOfferedUnitGBP, p.OfferedUnitGBP)
	setGBP(domain.FieldCustomerUnitGBP, p.CustomerUnitGBP)
	setGBP(domain.FieldFinalUnitGBP, p.FinalUnitGBP)
	setBDT(domain.FieldOfferedUnitBDT, p.OfferedUnitBDT)
	setBDT(domain.FieldCustomerUnitBDT, p.CustomerUnitBDT)
	setBDT(domain.FieldFinalUnitBDT, p.FinalUnitBDT)
	return fields, nil
}

func (s *Service) Delete(ctx context.Context, orderID int64) error {
	actor, err := actorcontext.RequireAdmin(ctx)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.loadOwned(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.StatusDelivered && order.Status != domain.StatusCancelled {
			return errs.Forbidden(fmt.Sprintf("order %d can only be deleted when delivered or cancelled, is %s", order.ID, order.Status))
		}
		if err := s.repo.Delete(ctx, tx, order.ID); err != nil {
			return err
		}
		logger.WithContext(ctx, s.log).Info("order deleted", zap.Int64("order_id", order.ID))
		return nil
	})
}

func (s *Service) Get(ctx context.Context, orderID int64) (*domain.OrderView, error) {
	actor, err := actorcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	order, err := s.loadOwned(ctx, s.db, actor, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	redact(actor, order, items)
	return &domain.OrderView{Order: order, Items: items}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]*domain.Order, error) {
	actor, err := actorcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	filter := domain.ListFilter{Status: req.Status}
	if !actor.IsAdmin() {
		filter.CreatorID = actor.ID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, errs.Validation("status", "invalid_status", "unknown order status "+string(filter.Status))
	}
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) ListItems(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	view, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return view.Items, nil
}

func (s *Service) caller(ctx context.Context, adminOnly bool) (actorcontext.Actor, error) {
	if adminOnly {
		return actorcontext.RequireAdmin(ctx)
	}
	return actorcontext.Require(ctx)
}

// loadOwned returns the order, rejecting customers who did not create it.
func (s *Service) loadOwned(ctx context.Context, db *gorm.DB, actor actorcontext.Actor, orderID int64) (*domain.Order, error) {
	if orderID == 0 {
		return nil, errs.Required("order_id")
	}
	order, err := s.repo.FindByID(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.NotFound("order", orderID)
	}
	if !actor.IsAdmin() && order.CreatorID != actor.ID {
		return nil, errs.Forbidden("not your order")
	}
	return order, nil
}

func (s *Service) itemsByID(ctx context.Context, db *gorm.DB, orderID int64) (map[int64]*domain.OrderItem, error) {
	items, err := s.repo.ListItems(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*domain.OrderItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

// transition checks the guard and writes the new status with a version check.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, actor actorcontext.Actor, order *domain.Order, to domain.Status, extra map[string]any) error {
	from := order.Status
	if err := domain.CanTransition(actor.Role, order.ID, from, to); err != nil {
		return err
	}
	fields := map[string]any{"status": to, "updated_at": s.clock.Now()}
	for k, v := range extra {
		fields[k] = v
	}
	if err := s.touch(ctx, tx, order, fields); err != nil {
		return err
	}
	order.Status = to

	s.metrics.RecordStatusTransition(ctx, "order", string(from), string(to), string(actor.Role))
	logger.WithContext(ctx, s.log).Info("order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

func (s *Service) touch(ctx context.Context, tx *gorm.DB, order *domain.Order, fields map[string]any) error {
	ok, err := s.repo.UpdateVersioned(ctx, tx, order.ID, order.Version, fields)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ConcurrentModification("order", order.ID)
	}
	order.Version++
	if ts, ok := fields["updated_at"].(time.Time); ok {
		order.UpdatedAt = ts
	}
	return nil
}

func redact(actor actorcontext.Actor, order *domain.Order, items []*domain.OrderItem) {
	if actor.IsAdmin() || order.CreatorCanSeePriceGBP {
		return
	}
	for _, item := range items {
		item.HideGBPPrices()
	}
}

func sortedItems(items map[int64]*domain.OrderItem) []*domain.OrderItem {
	out := make([]*domain.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LineNo != out[j].LineNo {
			return out[i].LineNo < out[j].LineNo
		}
		return out[i].ID < out[j].ID
	})
	return out
}
