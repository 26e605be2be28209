package goAccount

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goAccount/store"
)

const maxTaskDescription = 4096

// CreateTask stores a new task owned by ownerID.
func (e *Engine) CreateTask(ctx context.Context, ownerID string, in TaskInput) (*Task, error) {
	desc := strings.TrimSpace(in.Description)
	switch {
	case desc == "":
		return nil, &ValidationError{Field: "description", Reason: "is required"}
	case len(desc) > maxTaskDescription:
		return nil, &ValidationError{Field: "description", Reason: "is too long"}
	}

	task := &Task{
		ID:          e.newTaskID(),
		OwnerID:     ownerID,
		Description: desc,
		Completed:   in.Completed,
		CreatedAt:   e.now().UTC(),
	}
	if err := e.tasks.CreateTask(ctx, task); err != nil {
		if errors.Is(err, store.ErrOwnerNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeErr("create task", err)
	}

	e.metricInc(MetricTaskCreated)
	e.emitAudit(ctx, auditEventTaskCreated, true, ownerID, nil, func() map[string]string {
		return map[string]string{"task_id": task.ID}
	})
	return task, nil
}

// ListTasks returns the tasks owned by ownerID in creation order.
func (e *Engine) ListTasks(ctx context.Context, ownerID string) ([]Task, error) {
	tasks, err := e.tasks.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// DeleteTask removes one task. A task owned by another account is reported
// as ErrTaskNotFound.
func (e *Engine) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := e.tasks.DeleteTask(ctx, ownerID, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTaskNotFound
		}
		return storeErr("delete task", err)
	}
	e.metricInc(MetricTaskDeleted)
	e.emitAudit(ctx, auditEventTaskDeleted, true, ownerID, nil, func() map[string]string {
		return map[string]string{"task_id": taskID}
	})
	return nil
}
