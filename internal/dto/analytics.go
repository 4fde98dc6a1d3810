package dto

import "github.com/harborlaw/immigration-crm-api/internal/models"

// DashboardSummary aggregates the practice's headline numbers.
type DashboardSummary struct {
	LeadFunnel             []StatusCount `json:"lead_funnel"`
	CaseBreakdown          []StatusCount `json:"case_breakdown"`
	UpcomingAppointments   int           `json:"upcoming_appointments"`
	DocumentsPendingReview int           `json:"documents_pending_review"`
	ConversionRate         float64       `json:"conversion_rate"`
}

// StatusCount is one bucket of a grouped count.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CaseExportRow flattens a case for roster exports.
type CaseExportRow struct {
	CaseNumber  string             `json:"case_number"`
	ClientName  string             `json:"client_name"`
	ServiceType models.ServiceType `json:"service_type"`
	Status      models.CaseStatus  `json:"status"`
	Priority    models.Priority    `json:"priority"`
	CreatedAt   string             `json:"created_at"`
}

// ExportDownload is the signed link for a generated export file.
type ExportDownload struct {
	FileName  string `json:"file_name"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
