package view

import (
	"sort"

	"github.com/erazemk/galerija/internal/model"
)

// RecentOrderCount is how many orders the dashboard shows.
const RecentOrderCount = 5

// DashboardStats is the admin dashboard aggregation.
type DashboardStats struct {
	TotalOrders  int
	TotalRevenue model.Money
	StatusCounts map[string]int
	RecentOrders []model.Order
}

// Dashboard aggregates the order collection: order count, revenue (totals
// that failed to decode contribute zero), a histogram over the fixed
// fulfillment statuses, and the most recent orders by creation time.
func Dashboard(orders []model.Order) DashboardStats {
	stats := DashboardStats{
		TotalOrders:  len(orders),
		StatusCounts: make(map[string]int, len(model.FulfillmentStatuses)),
	}
	for _, status := range model.FulfillmentStatuses {
		stats.StatusCounts[status] = 0
	}

	for _, order := range orders {
		stats.TotalRevenue += order.TotalPrice
		if _, ok := stats.StatusCounts[order.Status]; ok {
			stats.StatusCounts[order.Status]++
		}
	}

	recent := make([]model.Order, len(orders))
	copy(recent, orders)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > RecentOrderCount {
		recent = recent[:RecentOrderCount]
	}
	stats.RecentOrders = recent

	return stats
}
