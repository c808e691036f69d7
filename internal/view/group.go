package view

import (
	"sort"

	"github.com/erazemk/galerija/internal/model"
)

// GroupByUser partitions order-user-view rows by owning user. Each group
// carries the user's denormalized display snapshot, an order count, and a
// revenue subtotal. Groups come back sorted by username, orders within a
// group newest first.
func GroupByUser(rows []model.OrderUserRow) []model.UserOrderGroup {
	byUser := make(map[int64]*model.UserOrderGroup)
	for _, row := range rows {
		group, ok := byUser[row.UserID]
		if !ok {
			group = &model.UserOrderGroup{
				Username: row.Username,
				UserInfo: model.UserInfo{
					UserID:      row.UserID,
					Email:       row.Email,
					DisplayName: row.DisplayName,
				},
			}
			byUser[row.UserID] = group
		}
		group.Orders = append(group.Orders, row)
		group.OrderCount++
		group.TotalSpent += row.TotalPrice
	}

	groups := make([]model.UserOrderGroup, 0, len(byUser))
	for _, group := range byUser {
		sort.SliceStable(group.Orders, func(i, j int) bool {
			return group.Orders[i].CreatedAt.After(group.Orders[j].CreatedAt)
		})
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Username < groups[j].Username })
	return groups
}
