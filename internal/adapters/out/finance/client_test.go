package finance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/services"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Client_NotifyOrderPaid(t *testing.T) {
	var received NewOrderRequest
	var path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, nil)
	require.NoError(t, err)

	snapshot := order.Snapshot{
		ID:          kernel.NewUUID().String(),
		Fulfillment: order.DineIn.String(),
		Status:      order.Paid.String(),
		Total:       22,
	}
	charges := services.Charges{Subtotal: 22, ServiceFee: 2.20, Discount: 1.10, Total: 23.10}

	err = client.NotifyOrderPaid(context.Background(), snapshot, charges)

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/orders", path)
	assert.Equal(t, snapshot.ID, received.Order.ID)
	assert.Equal(t, charges, received.Charges)
}

func Test_Client_NotifyOrderClosed(t *testing.T) {
	var path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, nil)
	require.NoError(t, err)

	orderID := kernel.NewUUID().String()
	err = client.NotifyOrderClosed(context.Background(), orderID)

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/orders/"+orderID+"/close", path)
}

func Test_Client_NonSuccessStatusIsDownstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, nil)
	require.NoError(t, err)

	err = client.NotifyOrderClosed(context.Background(), kernel.NewUUID().String())

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDownstreamCallFailure)
	assert.Contains(t, err.Error(), "502")
}

func Test_Client_UnreachableServerIsDownstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client, err := NewClient(server.URL, nil)
	require.NoError(t, err)

	err = client.NotifyOrderPaid(context.Background(), order.Snapshot{ID: kernel.NewUUID().String()}, services.Charges{})

	assert.ErrorIs(t, err, errs.ErrDownstreamCallFailure)
}

func Test_NewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("", nil)

	assert.ErrorIs(t, err, errs.ErrValueIsRequired)
}
