package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeOverdueScan flips past-due SENT invoices to OVERDUE.
	TaskTypeOverdueScan = "invoices:overdue_scan"
	// TaskTypeReminder re-dispatches one overdue invoice to its customer.
	TaskTypeReminder = "invoices:reminder"
)

// ReminderPayload identifies the invoice a reminder task targets.
type ReminderPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// NewOverdueScanTask constructs the scheduled scan task.
func NewOverdueScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOverdueScan, nil)
}

// NewReminderTask constructs a reminder task for one invoice.
func NewReminderTask(payload ReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReminder, data), nil
}
