package output_test

import (
	"bytes"
	"testing"
	"time"

	"taskpad/internal/output"
	"taskpad/internal/profile"
	"taskpad/internal/status"
	"taskpad/internal/testutil"
	"taskpad/internal/todo"
)

func TestFormatTask(t *testing.T) {
	tests := []struct {
		name string
		num  int
		task todo.Task
		want string
	}{
		{"open", 1, todo.Task{Text: "buy milk"}, "   1  [ ] buy milk\n"},
		{"completed", 2, todo.Task{Text: "done deal", Completed: true}, "   2  [x] done deal\n"},
		{"wide number", 1234, todo.Task{Text: "x"}, "1234  [ ] x\n"},
		{"empty text", 1, todo.Task{Text: "   "}, "   1  [ ] (empty)\n"},
		{"newlines flattened", 1, todo.Task{Text: "a\nb\r\nc"}, "   1  [ ] a b  c\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			output.FormatTask(&buf, tt.num, tt.task)
			if buf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestFormatProfile(t *testing.T) {
	var buf bytes.Buffer
	output.FormatProfile(&buf, profile.Profile{
		Username:  "ada",
		Email:     "ada@example.com",
		FullName:  "Ada Lovelace",
		LastLogin: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	})

	want := "username:   ada\n" +
		"email:      ada@example.com\n" +
		"name:       Ada Lovelace\n" +
		"last login: 2024-03-01 09:30:00\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestFormatProfile_OptionalFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	output.FormatProfile(&buf, profile.Profile{
		Username: "ada",
		Email:    "ada@example.com",
	})

	want := "username:   ada\nemail:      ada@example.com\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestFormatTaskList_Golden(t *testing.T) {
	tasks := []todo.Task{
		{Text: "write release notes", Completed: false},
		{Text: "tag v0.1.0", Completed: true},
		{Text: "update homebrew formula", Completed: false},
	}

	var buf bytes.Buffer
	for i, task := range tasks {
		output.FormatTask(&buf, i+1, task)
	}
	testutil.Golden(t, "task_list", buf.Bytes())
}

func TestFormatStatus(t *testing.T) {
	var buf bytes.Buffer
	output.FormatStatus(&buf, status.Message{Text: "task added", Kind: status.Success})

	if buf.String() != "success: task added\n" {
		t.Errorf("unexpected status output: %q", buf.String())
	}
}
