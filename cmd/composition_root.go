package cmd

import (
	"fmt"
	"log/slog"

	httpin "ordering/internal/adapters/in/http"
	innats "ordering/internal/adapters/in/natsbus"
	"ordering/internal/adapters/out/finance"
	"ordering/internal/adapters/out/kitchen"
	outnats "ordering/internal/adapters/out/natsbus"
	"ordering/internal/adapters/out/postgres"
	"ordering/internal/adapters/out/postgres/historyrepo"
	"ordering/internal/adapters/out/postgres/orderrepo"
	"ordering/internal/adapters/out/postgres/routingrepo"
	"ordering/internal/core/application/lifecycle"
	"ordering/internal/core/application/routing"
	"ordering/internal/core/application/strategies/durable"
	"ordering/internal/core/application/strategies/entity"
	"ordering/internal/core/application/strategies/keyedstore"
	"ordering/internal/core/domain/services"
	"ordering/internal/jobs"

	"github.com/nats-io/nats.go"
	"gorm.io/gorm"
)

// CompositionRoot wires the full object graph: postgres persistence, NATS
// messaging, the three execution strategies behind the router, the lifecycle
// service, and the background jobs.
type CompositionRoot struct {
	Service    *lifecycle.Service
	Server     *httpin.Server
	Subscriber *innats.KitchenSubscriber
	Jobs       *jobs.JobManager
	EntityHost *entity.Host
}

func NewCompositionRoot(config Config, gormDB *gorm.DB, natsConn *nats.Conn, logger *slog.Logger) (*CompositionRoot, error) {
	uowFactory := postgres.NewGormUnitOfWorkFactory(gormDB)
	orders := orderrepo.NewGormOrderRepository(gormDB, nil)
	routingRepo := routingrepo.NewGormRoutingRepository(gormDB)
	history := historyrepo.NewGormHistoryRepository(gormDB)

	publisher, err := outnats.NewPublisher(natsConn, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	financeClient, err := finance.NewClient(config.FinanceBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create finance client: %w", err)
	}

	kitchenStub, err := kitchen.NewStub(natsConn, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kitchen stub: %w", err)
	}

	calculator := services.NewChargeCalculator(config.ServiceFeeRate, config.LoyaltyDiscount)

	notifier, err := lifecycle.NewNotifier(publisher, financeClient, kitchenStub, calculator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	host, err := entity.NewHost(uowFactory, orders, notifier, config.RecoveryWindow, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity host: %w", err)
	}

	direct, err := keyedstore.NewStrategy(uowFactory, orders, notifier, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyed-store strategy: %w", err)
	}

	workflow, err := durable.NewStrategy(uowFactory, orders, history, notifier, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create durable strategy: %w", err)
	}

	rollout := services.RolloutConfig{
		EntityPercent:     config.EntityPercent,
		KeyedStorePercent: config.KeyedStorePercent,
		DurablePercent:    config.DurablePercent,
	}

	router, err := routing.NewRouter(rollout, routingRepo, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	service, err := lifecycle.NewService(router, map[services.StrategyID]lifecycle.OrderLifecycle{
		services.StrategyEntity:     host,
		services.StrategyKeyedStore: direct,
		services.StrategyDurable:    workflow,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create lifecycle service: %w", err)
	}

	server, err := httpin.NewServer(service)
	if err != nil {
		return nil, fmt.Errorf("failed to create http server: %w", err)
	}

	subscriber, err := innats.NewKitchenSubscriber(natsConn, service, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kitchen subscriber: %w", err)
	}

	jobManager := jobs.NewJobManager(service, uowFactory, orders, routingRepo, config.RecoveryWindow, logger)

	return &CompositionRoot{
		Service:    service,
		Server:     server,
		Subscriber: subscriber,
		Jobs:       jobManager,
		EntityHost: host,
	}, nil
}
