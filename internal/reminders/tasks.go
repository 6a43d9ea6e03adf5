// Package reminders schedules and delivers next-action reminders through
// the asynq task queue.
package reminders

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNextActionReminder = "pipeline.next_action.reminder"

// NextActionReminderPayload identifies the stage whose next action is due.
// IDs travel as strings so the payload stays a flat JSON object.
type NextActionReminderPayload struct {
	AssignmentID string `json:"assignmentId"`
	StageID      string `json:"stageId"`
}

func NewNextActionReminderTask(payload NextActionReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNextActionReminder, data), nil
}

func ParseNextActionReminderPayload(task *asynq.Task) (NextActionReminderPayload, error) {
	var payload NextActionReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NextActionReminderPayload{}, err
	}
	return payload, nil
}
