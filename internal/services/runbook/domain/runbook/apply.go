package runbook

import "fmt"

// Apply mutates state from a single event. It performs no business
// validation and never publishes; an error means the event stream is
// inconsistent with the aggregate.
func (r *Runbook) Apply(evt Event) error {
	if created, ok := evt.(RunbookCreated); ok {
		if r.created {
			return fmt.Errorf("%w: %s", ErrDuplicateCreation, r.runbookID)
		}
		r.runbookID = created.RunbookID
		r.projectID = created.ProjectID
		r.name = created.Name
		r.ownerID = created.OwnerID
		r.tasks = make(map[string]*Task)
		r.created = true
		return nil
	}
	if !r.created {
		return fmt.Errorf("%w: %s", ErrEventBeforeCreation, typeOf(evt))
	}

	switch e := evt.(type) {
	case TaskAdded:
		r.tasks[e.TaskID] = newTask(e)
	case TaskMarkedInProgress:
		task, ok := r.tasks[e.TaskID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrEventUnknownTask, e.TaskID)
		}
		task.applyMarkedInProgress(e)
	case TaskCompleted:
		task, ok := r.tasks[e.TaskID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrEventUnknownTask, e.TaskID)
		}
		task.applyCompleted(e)
	case RunbookCompleted:
		r.completed = true
	default:
		return fmt.Errorf("%w: %s", ErrEventUnsupported, typeOf(evt))
	}
	return nil
}

func typeOf(evt Event) string {
	if evt == nil {
		return "<nil>"
	}
	return string(evt.Type())
}
