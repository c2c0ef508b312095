// Package tasks generates development task workflows as structured JSON and
// validates them while they stream in.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type ItemType string

const (
	ItemText ItemType = "text"
	ItemFile ItemType = "file"
)

// Icons lists the file icon kinds a file item may use.
var Icons = []string{"react", "typescript", "javascript", "css", "html", "json", "markdown"}

type TaskFile struct {
	Name  string `json:"name"`
	Icon  string `json:"icon" jsonschema:"enum=react,enum=typescript,enum=javascript,enum=css,enum=html,enum=json,enum=markdown"`
	Color string `json:"color,omitempty"`
}

type TaskItem struct {
	Type ItemType  `json:"type" jsonschema:"enum=text,enum=file"`
	Text string    `json:"text"`
	File *TaskFile `json:"file,omitempty"`
}

type Task struct {
	Title  string     `json:"title"`
	Items  []TaskItem `json:"items"`
	Status Status     `json:"status" jsonschema:"enum=pending,enum=in_progress,enum=completed"`
}

// TaskList is the object requested from the model.
type TaskList struct {
	Tasks []Task `json:"tasks"`
}

// ValidationError points at the first field that violates the task schema.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Path + ": " + e.Reason
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func validIcon(icon string) bool {
	for _, i := range Icons {
		if i == icon {
			return true
		}
	}
	return false
}

func (it TaskItem) validate(path string) error {
	switch it.Type {
	case ItemText:
	case ItemFile:
		if it.File == nil {
			return &ValidationError{Path: path + ".file", Reason: "file items need a file"}
		}
		if it.File.Name == "" {
			return &ValidationError{Path: path + ".file.name", Reason: "missing file name"}
		}
		if it.File.Icon == "" {
			return &ValidationError{Path: path + ".file.icon", Reason: "missing icon"}
		}
		if !validIcon(it.File.Icon) {
			return &ValidationError{Path: path + ".file.icon", Reason: fmt.Sprintf("unknown icon %q", it.File.Icon)}
		}
	default:
		return &ValidationError{Path: path + ".type", Reason: fmt.Sprintf("unknown item type %q", it.Type)}
	}
	return nil
}

func (t Task) validate(path string) error {
	if !t.Status.Valid() {
		return &ValidationError{Path: path + ".status", Reason: fmt.Sprintf("unknown status %q", t.Status)}
	}
	for i, it := range t.Items {
		if err := it.validate(fmt.Sprintf("%s.items[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the task against the schema.
func (t Task) Validate() error {
	return t.validate("task")
}

func (l TaskList) Validate() error {
	for i, t := range l.Tasks {
		if err := t.validate(fmt.Sprintf("tasks[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// Schema returns the JSON Schema of TaskList, inlined and without $schema
// or $id so it can be sent as a response format.
func Schema() map[string]any {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	raw, err := json.Marshal(r.Reflect(&TaskList{}))
	if err != nil {
		panic(fmt.Sprintf("tasks: reflect schema: %v", err))
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		panic(fmt.Sprintf("tasks: decode schema: %v", err))
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema
}
