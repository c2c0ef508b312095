package tasks

import (
	"errors"
	"strings"
	"testing"
)

func fileItem(name, icon string) TaskItem {
	return TaskItem{Type: ItemFile, Text: "Edit " + name, File: &TaskFile{Name: name, Icon: icon}}
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name     string
		task     Task
		wantPath string
	}{
		{
			name: "valid mixed items",
			task: Task{Title: "Set up", Status: StatusInProgress, Items: []TaskItem{
				{Type: ItemText, Text: "Plan the layout"},
				fileItem("App.tsx", "react"),
			}},
		},
		{
			name:     "unknown status",
			task:     Task{Title: "x", Status: "blocked"},
			wantPath: "task.status",
		},
		{
			name:     "unknown item type",
			task:     Task{Title: "x", Status: StatusPending, Items: []TaskItem{{Type: "link", Text: "y"}}},
			wantPath: "task.items[0].type",
		},
		{
			name:     "file item without file",
			task:     Task{Title: "x", Status: StatusPending, Items: []TaskItem{{Type: ItemFile, Text: "y"}}},
			wantPath: "task.items[0].file",
		},
		{
			name:     "file item without icon",
			task:     Task{Title: "x", Status: StatusPending, Items: []TaskItem{fileItem("a.css", "")}},
			wantPath: "task.items[0].file.icon",
		},
		{
			name:     "icon outside set",
			task:     Task{Title: "x", Status: StatusCompleted, Items: []TaskItem{{Type: ItemText}, fileItem("a.vue", "vue")}},
			wantPath: "task.items[1].file.icon",
		},
		{
			name:     "file without name",
			task:     Task{Title: "x", Status: StatusCompleted, Items: []TaskItem{fileItem("", "json")}},
			wantPath: "task.items[0].file.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantPath == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", verr.Path, tt.wantPath)
			}
		})
	}
}

func TestTaskListValidateReportsIndex(t *testing.T) {
	list := TaskList{Tasks: []Task{
		{Title: "a", Status: StatusCompleted},
		{Title: "b", Status: "done"},
	}}
	err := list.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "tasks[1].status") {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSchema(t *testing.T) {
	s := Schema()

	if _, ok := s["$schema"]; ok {
		t.Error("$schema should be stripped")
	}
	if s["type"] != "object" {
		t.Fatalf("type = %v", s["type"])
	}

	tasks := s["properties"].(map[string]any)["tasks"].(map[string]any)
	task := tasks["items"].(map[string]any)
	props := task["properties"].(map[string]any)

	status := props["status"].(map[string]any)
	if enum := status["enum"].([]any); len(enum) != 3 || enum[1] != "in_progress" {
		t.Errorf("status enum = %v", status["enum"])
	}

	item := props["items"].(map[string]any)["items"].(map[string]any)
	required := item["required"].([]any)
	if len(required) != 2 || required[0] != "type" || required[1] != "text" {
		t.Errorf("item required = %v", required)
	}

	file := item["properties"].(map[string]any)["file"].(map[string]any)
	icon := file["properties"].(map[string]any)["icon"].(map[string]any)
	if enum := icon["enum"].([]any); len(enum) != len(Icons) {
		t.Errorf("icon enum = %v", icon["enum"])
	}
	fileRequired := file["required"].([]any)
	if len(fileRequired) != 2 || fileRequired[1] != "icon" {
		t.Errorf("file required = %v", fileRequired)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("  building a todo app ")

	if !strings.Contains(p, "tasks that would occur during building a todo app.") {
		t.Errorf("prompt not embedded: %q", p)
	}
	for _, want := range []string{"3-4 tasks", "4-6 items", "'react'", "'markdown'", "pending to in_progress to completed"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
