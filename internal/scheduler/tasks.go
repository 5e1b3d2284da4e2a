package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskNextServiceReminder reminds the technician looking after a client that
// the next service visit is coming up.
const TaskNextServiceReminder = "reports.next_service_reminder"

// NextServiceReminderPayload identifies the approved report that set the
// next service date. NextServiceDate (YYYY-MM-DD) lets the worker drop
// reminders made stale by a later change of date.
type NextServiceReminderPayload struct {
	ReportID        string `json:"reportId"`
	ClientID        string `json:"clientId"`
	NextServiceDate string `json:"nextServiceDate"`
}

func NewNextServiceReminderTask(payload NextServiceReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNextServiceReminder, data), nil
}

func ParseNextServiceReminderPayload(task *asynq.Task) (NextServiceReminderPayload, error) {
	var payload NextServiceReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NextServiceReminderPayload{}, fmt.Errorf("decode %s payload: %w", TaskNextServiceReminder, err)
	}
	return payload, nil
}
