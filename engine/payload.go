package engine

import "time"

// Job type names the engine enqueues. Processors register under these.
const (
	TypeValuation    = "valuation.calculate"
	TypeReport       = "report.generate"
	TypeExport       = "data.export"
	TypeNotification = "notify.email"
)

// Per-kind enqueue defaults. Valuations preempt everything else;
// notifications are cheap to retry so they get the largest budget.
const (
	valuationPriority    = 10
	valuationMaxAttempts = 3

	reportPriority    = 5
	reportMaxAttempts = 2

	exportPriority    = 0
	exportMaxAttempts = 2

	notificationPriority    = 1
	notificationMaxAttempts = 5
)

// ValuationPayload is the input to a valuation calculation job.
type ValuationPayload struct {
	CompanyID string `json:"company_id" validate:"required"`
	// Method selects the calculation model.
	Method string `json:"method" validate:"required,oneof=dcf multiples vc_method scorecard"`
	// AsOf is the valuation date in YYYY-MM-DD form.
	AsOf string `json:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ReportPayload is the input to a report generation job.
type ReportPayload struct {
	ValuationID string `json:"valuation_id" validate:"required"`
	Format      string `json:"format" validate:"required,oneof=pdf docx html"`
	Locale      string `json:"locale,omitempty" validate:"omitempty,bcp47_language_tag"`
}

// ExportPayload is the input to a data export job.
type ExportPayload struct {
	Entity string `json:"entity" validate:"required,oneof=companies clients valuations"`
	Format string `json:"format" validate:"required,oneof=csv xlsx json"`
	// Filter is an opaque query string interpreted by the export
	// processor.
	Filter string `json:"filter,omitempty"`
}

// NotificationPayload is the input to an email notification job.
type NotificationPayload struct {
	To       string `json:"to" validate:"required,email"`
	Template string `json:"template" validate:"required"`
	// Params fill the template.
	Params map[string]string `json:"params,omitempty"`
	// SendAfter delays delivery; zero sends on the next free slot.
	SendAfter time.Duration `json:"send_after,omitempty" validate:"omitempty,min=0"`
}
