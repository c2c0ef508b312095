package tasks

import (
	"encoding/json"
	"testing"
)

func TestCompleteJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace", "  \n", ""},
		{"open object", "{", "{}"},
		{"partial key dropped", `{"ta`, "{}"},
		{"key without value dropped", `{"tasks":`, "{}"},
		{"open array", `{"tasks":[`, `{"tasks":[]}`},
		{"partial string value closed", `{"tasks":[{"title":"Set u`, `{"tasks":[{"title":"Set u"}]}`},
		{"empty string value", `{"title":"`, `{"title":""}`},
		{"trailing comma dropped", `{"a":"b",`, `{"a":"b"}`},
		{"partial literal dropped", `{"a":1,"b":tr`, `{"a":1}`},
		{"complete literal kept", `{"a":true`, `{"a":true}`},
		{"partial number kept", `{"a":12`, `{"a":12}`},
		{"dangling decimal dropped", `{"a":1.`, `{}`},
		{"escape not split", `{"a":"x\`, `{"a":"x"}`},
		{"unicode escape not split", `{"a":"x\u00`, `{"a":"x"}`},
		{"unicode escape complete", `{"a":"x\u00e9`, `{"a":"x\u00e9"}`},
		{"escaped quote", `{"a":"say \"hi`, `{"a":"say \"hi"}`},
		{"nested closes", `{"a":[{"b":[1,2`, `{"a":[{"b":[1,2]}]}`},
		{"complete document", `{"a":[1]}`, `{"a":[1]}`},
		{"trailing text ignored", `{"a":1} done`, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompleteJSON(tt.in)
			if got != tt.want {
				t.Fatalf("CompleteJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got != "" && !json.Valid([]byte(got)) {
				t.Errorf("result %q is not valid JSON", got)
			}
		})
	}
}

func TestCompleteJSONMultiByte(t *testing.T) {
	in := `{"a":"caf` + "\xc3"
	if got := CompleteJSON(in); got != `{"a":"caf"}` {
		t.Errorf("CompleteJSON split a rune: %q", got)
	}
	if got := CompleteJSON(`{"a":"café`); got != `{"a":"café"}` {
		t.Errorf("CompleteJSON(café) = %q", got)
	}
}

func TestCompleteJSONEveryPrefixParses(t *testing.T) {
	doc := `{"tasks":[{"title":"Scaffold \"app\"","items":[{"type":"text","text":"Init repo"},{"type":"file","text":"Add entry","file":{"name":"index.ts","icon":"typescript","color":"blue"}}],"status":"completed"},{"title":"Style","items":[],"status":"pending"}]}`

	for i := 0; i <= len(doc); i++ {
		got := CompleteJSON(doc[:i])
		if got == "" {
			continue
		}
		if !json.Valid([]byte(got)) {
			t.Fatalf("prefix %d: %q completed to invalid %q", i, doc[:i], got)
		}
	}
}

func TestParsePartial(t *testing.T) {
	text := `{"tasks":[{"title":"Scaffold","items":[{"type":"text","text":"Init"}],"status":"completed"},{"title":"Sty`

	list, err := ParsePartial(text)
	if err != nil {
		t.Fatalf("ParsePartial() error = %v", err)
	}
	if len(list.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(list.Tasks))
	}
	if list.Tasks[0].Status != StatusCompleted || len(list.Tasks[0].Items) != 1 {
		t.Errorf("first task = %+v", list.Tasks[0])
	}
	if list.Tasks[1].Title != "Sty" {
		t.Errorf("partial title = %q", list.Tasks[1].Title)
	}

	if _, err := ParsePartial(`[1,2`); err == nil {
		t.Error("array document should not decode into a task list")
	}
}
