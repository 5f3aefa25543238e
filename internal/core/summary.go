package core

// FinancialSummary is a project-wide snapshot, recomputed on every request.
type FinancialSummary struct {
	ProjectID       string     `json:"project_id"`
	TotalCost       Money      `json:"total_cost"`
	TotalPaid       Money      `json:"total_paid"`
	TotalRemaining  Money      `json:"total_remaining"`
	PercentPaid     Percentage `json:"percent_paid"`
	NextDueDate     *Date      `json:"next_due_date"`
	OverdueCount    int        `json:"overdue_count"`
	MonthsRemaining int        `json:"months_remaining"`
	LastDueDate     *Date      `json:"last_due_date"`
}

// ItemPaymentSummary tells how much of one item's payments has been paid.
type ItemPaymentSummary struct {
	Item               Item              `json:"item"`
	EstimatedTotal     Money             `json:"estimated_total"`
	PaymentCount       int               `json:"payment_count"`
	TotalPaymentAmount Money             `json:"total_payment_amount"`
	TotalPaid          Money             `json:"total_paid"`
	PaymentStatus      ItemPaymentStatus `json:"payment_status"`
}
