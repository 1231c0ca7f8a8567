package lifecycle

import (
	"context"
	"log/slog"

	"ordering/internal/core/application/routing"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/services"
	"ordering/internal/pkg/errs"
)

// Service is the dispatching facade in front of the execution strategies.
// It generates the order id, asks the router for the owning strategy, and
// forwards every subsequent command to that same strategy. Callers never see
// which strategy runs their order.
type Service struct {
	router     *routing.Router
	strategies map[services.StrategyID]OrderLifecycle
	logger     *slog.Logger
}

func NewService(
	router *routing.Router,
	strategies map[services.StrategyID]OrderLifecycle,
	logger *slog.Logger,
) (*Service, error) {
	if router == nil {
		return nil, errs.NewValueIsRequiredError("router")
	}
	if len(strategies) == 0 {
		return nil, errs.NewValueIsRequiredError("strategies")
	}
	for id, strategy := range strategies {
		if err := id.Validate(); err != nil {
			return nil, errs.NewValueIsInvalidErrorWithCause("strategies", err)
		}
		if strategy == nil {
			return nil, errs.NewValueIsRequiredError("strategies[" + string(id) + "]")
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		router:     router,
		strategies: strategies,
		logger:     logger,
	}, nil
}

// CreateOrder opens a new order: it mints the id, routes it to a strategy,
// and runs the creation there. The id is returned so the caller can address
// the order in later commands.
func (s *Service) CreateOrder(ctx context.Context, fulfillment order.Fulfillment) (kernel.UUID, error) {
	orderID := kernel.NewUUID()

	strategyID, err := s.router.Assign(ctx, orderID)
	if err != nil {
		return kernel.UUID{}, err
	}

	strategy, err := s.strategy(strategyID)
	if err != nil {
		return kernel.UUID{}, err
	}

	if err := strategy.CreateOrder(ctx, orderID, fulfillment); err != nil {
		return kernel.UUID{}, err
	}

	s.logger.Info("order created",
		slog.String("order_id", orderID.String()),
		slog.String("fulfillment", fulfillment.String()),
		slog.String("strategy", string(strategyID)))

	return orderID, nil
}

func (s *Service) AssignCustomer(ctx context.Context, orderID kernel.UUID, customer order.Customer) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.AssignCustomer(ctx, orderID, customer)
	})
}

func (s *Service) AssignInvoiceAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.AssignInvoiceAddress(ctx, orderID, address)
	})
}

func (s *Service) AssignDeliveryAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.AssignDeliveryAddress(ctx, orderID, address)
	})
}

func (s *Service) AddItem(ctx context.Context, orderID kernel.UUID, item ItemInput) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.AddItem(ctx, orderID, item)
	})
}

func (s *Service) RemoveItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.RemoveItem(ctx, orderID, itemID)
	})
}

func (s *Service) ConfirmOrder(ctx context.Context, orderID kernel.UUID) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.ConfirmOrder(ctx, orderID)
	})
}

func (s *Service) ConfirmPayment(ctx context.Context, orderID kernel.UUID) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.ConfirmPayment(ctx, orderID)
	})
}

func (s *Service) StartProcessing(ctx context.Context, orderID kernel.UUID) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.StartProcessing(ctx, orderID)
	})
}

func (s *Service) FinishItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.FinishItem(ctx, orderID, itemID)
	})
}

func (s *Service) Serve(ctx context.Context, orderID kernel.UUID) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.Serve(ctx, orderID)
	})
}

func (s *Service) StartDelivery(ctx context.Context, orderID kernel.UUID) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.StartDelivery(ctx, orderID)
	})
}

func (s *Service) Delivered(ctx context.Context, orderID kernel.UUID) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.Delivered(ctx, orderID)
	})
}

// MarkAbandoned flags a stalled order on whichever strategy owns it.
func (s *Service) MarkAbandoned(ctx context.Context, orderID kernel.UUID) error {
	return s.dispatch(ctx, orderID, func(strategy OrderLifecycle) error {
		return strategy.MarkAbandoned(ctx, orderID)
	})
}

// GetOrder reads the last committed state of an order from its strategy.
func (s *Service) GetOrder(ctx context.Context, orderID kernel.UUID) (*order.Order, error) {
	strategyID, err := s.router.Lookup(ctx, orderID)
	if err != nil {
		return nil, err
	}

	strategy, err := s.strategy(strategyID)
	if err != nil {
		return nil, err
	}

	return strategy.GetOrder(ctx, orderID)
}

func (s *Service) dispatch(ctx context.Context, orderID kernel.UUID, command func(OrderLifecycle) error) error {
	strategyID, err := s.router.Lookup(ctx, orderID)
	if err != nil {
		return err
	}

	strategy, err := s.strategy(strategyID)
	if err != nil {
		return err
	}

	return command(strategy)
}

func (s *Service) strategy(id services.StrategyID) (OrderLifecycle, error) {
	strategy, ok := s.strategies[id]
	if !ok {
		return nil, errs.NewValueIsInvalidError("strategy " + string(id) + " is not registered")
	}
	return strategy, nil
}
