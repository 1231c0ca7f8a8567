// Package http exposes the order lifecycle over a REST API. Handlers are a
// thin translation layer: decode, build domain values, call the lifecycle
// service, map the error taxonomy onto status codes. Processing-start and
// item-finished never arrive here; the kitchen coordinator drives those over
// the event bus.
package http

import (
	"context"
	"errors"
	"net/http"

	"ordering/internal/core/application/lifecycle"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Server implements the HTTP handlers for order lifecycle commands.
// It coordinates between HTTP requests and the dispatching service.
type Server struct {
	orders *lifecycle.Service
}

// NewServer creates a new HTTP server backed by the lifecycle service.
func NewServer(orders *lifecycle.Service) (*Server, error) {
	if orders == nil {
		return nil, errs.NewValueIsRequiredError("orders")
	}
	return &Server{orders: orders}, nil
}

// RegisterRoutes attaches all order routes to the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")

	api.POST("/orders", s.CreateOrder)
	api.GET("/orders/:id", s.GetOrder)
	api.PUT("/orders/:id/customer", s.AssignCustomer)
	api.PUT("/orders/:id/invoice-address", s.AssignInvoiceAddress)
	api.PUT("/orders/:id/delivery-address", s.AssignDeliveryAddress)
	api.POST("/orders/:id/items", s.AddItem)
	api.DELETE("/orders/:id/items/:itemId", s.RemoveItem)
	api.POST("/orders/:id/confirm", s.ConfirmOrder)
	api.POST("/orders/:id/payment", s.ConfirmPayment)
	api.POST("/orders/:id/serve", s.Serve)
	api.POST("/orders/:id/delivery", s.StartDelivery)
	api.POST("/orders/:id/delivered", s.Delivered)
}

// Error is the JSON error body returned by all handlers.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewOrderRequest is the body of POST /orders.
type NewOrderRequest struct {
	Fulfillment string `json:"fulfillment"`
}

// NewOrderResponse returns the id assigned to the created order.
type NewOrderResponse struct {
	ID string `json:"id"`
}

// CustomerRequest is the body of PUT /orders/:id/customer.
type CustomerRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	LoyaltyRef string `json:"loyalty_ref,omitempty"`
}

// AddressRequest is the body of the two address endpoints.
type AddressRequest struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Zip    string `json:"zip,omitempty"`
}

// NewItemRequest is the body of POST /orders/:id/items. The item id acts as
// the idempotency key; omitted ids get a fresh one.
type NewItemRequest struct {
	ID         string  `json:"id,omitempty"`
	ProductRef string  `json:"product_ref"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Comment    string  `json:"comment,omitempty"`
}

// CreateOrder handles POST /api/v1/orders - starts a new order lifecycle.
func (s *Server) CreateOrder(ctx echo.Context) error {
	var req NewOrderRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	fulfillment, err := order.FulfillmentFromString(req.Fulfillment)
	if err != nil {
		return badRequest(ctx, "Invalid fulfillment type: "+req.Fulfillment)
	}

	orderID, err := s.orders.CreateOrder(ctx.Request().Context(), fulfillment)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, NewOrderResponse{ID: orderID.String()})
}

// GetOrder handles GET /api/v1/orders/:id - returns the committed snapshot.
func (s *Server) GetOrder(ctx echo.Context) error {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	aggregate, err := s.orders.GetOrder(ctx.Request().Context(), orderID)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, aggregate.Snapshot())
}

// AssignCustomer handles PUT /api/v1/orders/:id/customer.
func (s *Server) AssignCustomer(ctx echo.Context) error {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	var req CustomerRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	customer, err := order.NewCustomer(req.FirstName, req.LastName, req.LoyaltyRef)
	if err != nil {
		return respondError(ctx, err)
	}

	if err := s.orders.AssignCustomer(ctx.Request().Context(), orderID, customer); err != nil {
		return respondError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// AssignInvoiceAddress handles PUT /api/v1/orders/:id/invoice-address.
func (s *Server) AssignInvoiceAddress(ctx echo.Context) error {
	return s.assignAddress(ctx, s.orders.AssignInvoiceAddress)
}

// AssignDeliveryAddress handles PUT /api/v1/orders/:id/delivery-address.
func (s *Server) AssignDeliveryAddress(ctx echo.Context) error {
	return s.assignAddress(ctx, s.orders.AssignDeliveryAddress)
}

// AddItem handles POST /api/v1/orders/:id/items.
func (s *Server) AddItem(ctx echo.Context) error {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	var req NewItemRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	itemID := kernel.NewUUID()
	if req.ID != "" {
		itemID, err = kernel.UUIDFromString(req.ID)
		if err != nil {
			return badRequest(ctx, "Invalid item id")
		}
	}

	input := lifecycle.ItemInput{
		ID:         itemID,
		ProductRef: req.ProductRef,
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		Comment:    req.Comment,
	}

	if err := s.orders.AddItem(ctx.Request().Context(), orderID, input); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, map[string]string{"item_id": itemID.String()})
}

// RemoveItem handles DELETE /api/v1/orders/:id/items/:itemId.
func (s *Server) RemoveItem(ctx echo.Context) error {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}
	itemID, err := kernel.UUIDFromString(ctx.Param("itemId"))
	if err != nil {
		return badRequest(ctx, "Invalid item id")
	}

	if err := s.orders.RemoveItem(ctx.Request().Context(), orderID, itemID); err != nil {
		return respondError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ConfirmOrder handles POST /api/v1/orders/:id/confirm.
func (s *Server) ConfirmOrder(ctx echo.Context) error {
	return s.command(ctx, s.orders.ConfirmOrder)
}

// ConfirmPayment handles POST /api/v1/orders/:id/payment.
func (s *Server) ConfirmPayment(ctx echo.Context) error {
	return s.command(ctx, s.orders.ConfirmPayment)
}

// Serve handles POST /api/v1/orders/:id/serve - closes a non-delivery order.
func (s *Server) Serve(ctx echo.Context) error {
	return s.command(ctx, s.orders.Serve)
}

// StartDelivery handles POST /api/v1/orders/:id/delivery.
func (s *Server) StartDelivery(ctx echo.Context) error {
	return s.command(ctx, s.orders.StartDelivery)
}

// Delivered handles POST /api/v1/orders/:id/delivered - closes a delivery order.
func (s *Server) Delivered(ctx echo.Context) error {
	return s.command(ctx, s.orders.Delivered)
}

func (s *Server) assignAddress(ctx echo.Context, assign func(ctx context.Context, orderID kernel.UUID, address order.Address) error) error {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	var req AddressRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	address, err := order.NewAddress(req.Street, req.City, req.Zip)
	if err != nil {
		return respondError(ctx, err)
	}

	if err := assign(ctx.Request().Context(), orderID, address); err != nil {
		return respondError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) command(ctx echo.Context, run func(ctx context.Context, orderID kernel.UUID) error) error {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	if err := run(ctx.Request().Context(), orderID); err != nil {
		return respondError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func orderIDParam(ctx echo.Context) (kernel.UUID, error) {
	return kernel.UUIDFromString(ctx.Param("id"))
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}

// respondError maps the error taxonomy onto HTTP status codes: guard
// violations conflict, unknown identifiers are not found, validation
// failures are bad requests, everything else is a 500.
func respondError(ctx echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrInvalidStateTransition):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrObjectNotFound),
		errors.Is(err, errs.ErrRoutingNotFound),
		errors.Is(err, errs.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		status = http.StatusBadRequest
	}

	return ctx.JSON(status, Error{Code: status, Message: err.Error()})
}
