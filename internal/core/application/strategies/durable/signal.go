package durable

import (
	"encoding/json"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"
)

// Signal names. Each signal is one external command delivered to the
// workflow; its receipt time is recorded with it and becomes the
// deterministic "now" of the state transition on every replay.
const (
	signalCreateOrder           = "create_order"
	signalAssignCustomer        = "assign_customer"
	signalAssignInvoiceAddress  = "assign_invoice_address"
	signalAssignDeliveryAddress = "assign_delivery_address"
	signalAddItem               = "add_item"
	signalRemoveItem            = "remove_item"
	signalConfirmOrder          = "confirm_order"
	signalConfirmPayment        = "confirm_payment"
	signalStartProcessing       = "start_processing"
	signalFinishItem            = "finish_item"
	signalServe                 = "serve"
	signalStartDelivery         = "start_delivery"
	signalDelivered             = "delivered"
	signalMarkAbandoned         = "mark_abandoned"
)

// itemPayload carries an item being added.
type itemPayload struct {
	ID         string  `json:"id"`
	ProductRef string  `json:"product_ref"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Comment    string  `json:"comment,omitempty"`
}

// signalPayload is the recorded argument of a signal. Only the fields the
// signal needs are set; the rest stay at their zero value.
type signalPayload struct {
	Fulfillment string                  `json:"fulfillment,omitempty"`
	Customer    *order.CustomerSnapshot `json:"customer,omitempty"`
	Address     *order.AddressSnapshot  `json:"address,omitempty"`
	Item        *itemPayload            `json:"item,omitempty"`
	ItemID      string                  `json:"item_id,omitempty"`
}

// signal is one command as seen by the workflow: a name, the deterministic
// receipt time, and the recorded argument.
type signal struct {
	Name    string
	At      time.Time
	Payload signalPayload
}

func (s signal) encode() ([]byte, error) {
	return json.Marshal(s.Payload)
}

func decodeSignal(name string, at time.Time, raw []byte) (signal, error) {
	var payload signalPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return signal{}, errs.NewValueIsInvalidErrorWithCause("signal payload", err)
		}
	}
	return signal{Name: name, At: at, Payload: payload}, nil
}

// applySignal runs one signal against the aggregate. For create_order the
// incoming aggregate is nil and the new one is returned. The signal's receipt
// time is the transition time, so replaying the same history always yields
// byte-identical state and events.
func applySignal(orderID kernel.UUID, o *order.Order, sig signal) (*order.Order, error) {
	if sig.Name == signalCreateOrder {
		if o != nil {
			// A redelivered create must not reset an existing workflow.
			return nil, errs.NewInvalidStateTransitionError(orderID.String(),
				signalCreateOrder, o.Status().String())
		}
		fulfillment, err := order.FulfillmentFromString(sig.Payload.Fulfillment)
		if err != nil {
			return nil, err
		}
		return order.NewOrder(orderID, fulfillment, sig.At)
	}

	if o == nil {
		return nil, errs.NewObjectNotFoundError("order", orderID.String())
	}

	switch sig.Name {
	case signalAssignCustomer:
		customer, err := customerFromSnapshot(sig.Payload.Customer)
		if err != nil {
			return nil, err
		}
		return o, o.AssignCustomer(customer, sig.At)

	case signalAssignInvoiceAddress:
		address, err := addressFromSnapshot(sig.Payload.Address)
		if err != nil {
			return nil, err
		}
		return o, o.AssignInvoiceAddress(address, sig.At)

	case signalAssignDeliveryAddress:
		address, err := addressFromSnapshot(sig.Payload.Address)
		if err != nil {
			return nil, err
		}
		return o, o.AssignDeliveryAddress(address, sig.At)

	case signalAddItem:
		item, err := itemFromPayload(sig.Payload.Item)
		if err != nil {
			return nil, err
		}
		return o, o.AddItem(item, sig.At)

	case signalRemoveItem:
		itemID, err := kernel.UUIDFromString(sig.Payload.ItemID)
		if err != nil {
			return nil, err
		}
		return o, o.RemoveItem(itemID, sig.At)

	case signalConfirmOrder:
		return o, o.Confirm(sig.At)

	case signalConfirmPayment:
		return o, o.ConfirmPayment(sig.At)

	case signalStartProcessing:
		return o, o.StartProcessing(sig.At)

	case signalFinishItem:
		itemID, err := kernel.UUIDFromString(sig.Payload.ItemID)
		if err != nil {
			return nil, err
		}
		return o, o.FinishItem(itemID, sig.At)

	case signalServe:
		return o, o.Serve(sig.At)

	case signalStartDelivery:
		return o, o.StartDelivery(sig.At)

	case signalDelivered:
		return o, o.Delivered(sig.At)

	case signalMarkAbandoned:
		// The flag lives in the history, so later snapshot rebuilds keep it.
		o.MarkAbandoned(sig.At)
		return o, nil

	default:
		return nil, errs.NewValueIsInvalidError("signal " + sig.Name + " is unknown")
	}
}

func customerFromSnapshot(s *order.CustomerSnapshot) (order.Customer, error) {
	if s == nil {
		return order.Customer{}, errs.NewValueIsRequiredError("customer")
	}

	invoice, err := optionalAddress(s.InvoiceAddress)
	if err != nil {
		return order.Customer{}, err
	}
	delivery, err := optionalAddress(s.DeliveryAddress)
	if err != nil {
		return order.Customer{}, err
	}

	return order.RestoreCustomer(s.FirstName, s.LastName, s.LoyaltyRef, invoice, delivery)
}

func addressFromSnapshot(s *order.AddressSnapshot) (order.Address, error) {
	if s == nil {
		return order.Address{}, errs.NewValueIsRequiredError("address")
	}
	return order.NewAddress(s.Street, s.City, s.Zip)
}

func optionalAddress(s *order.AddressSnapshot) (*order.Address, error) {
	if s == nil {
		return nil, nil
	}
	address, err := order.NewAddress(s.Street, s.City, s.Zip)
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func itemFromPayload(p *itemPayload) (*order.Item, error) {
	if p == nil {
		return nil, errs.NewValueIsRequiredError("item")
	}
	id, err := kernel.UUIDFromString(p.ID)
	if err != nil {
		return nil, err
	}
	return order.NewItem(id, p.ProductRef, p.Quantity, p.UnitPrice, p.Comment)
}
