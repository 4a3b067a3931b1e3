package models

// AdminStats are the dashboard counters.
type AdminStats struct {
	TotalToys            int64 `json:"total_toys"`
	TotalCustomers       int64 `json:"total_customers"`
	PendingApprovals     int64 `json:"pending_approvals"`
	TotalOrders          int64 `json:"total_orders"`
	PendingOrders        int64 `json:"pending_orders"`
	AcceptedOrders       int64 `json:"accepted_orders"`
	ReconciliationNeeded int64 `json:"reconciliation_needed"`
}
