package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	salesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_sales_created_total",
			Help: "Sales created, by customer type",
		},
		[]string{"customer_type"},
	)

	salesRevenue = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_sales_revenue_total",
			Help: "Sum of created sale totals, by currency",
		},
		[]string{"currency"},
	)

	paymentsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_sale_payments_total",
			Help: "Payments recorded, by resulting payment status",
		},
		[]string{"payment_status"},
	)

	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_sale_status_transitions_total",
			Help: "Sale status changes, by target status",
		},
		[]string{"status"},
	)

	inventoryRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_inventory_rejections_total",
			Help: "Sales rejected by the inventory ledger",
		},
		[]string{"reason"},
	)

	orderNumberCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "farm_order_number_collisions_total",
			Help: "Order numbers regenerated after a uniqueness collision",
		},
	)

	stockAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_stock_alerts_total",
			Help: "Stock alerts raised, by stock status",
		},
		[]string{"stock_status"},
	)
)
