// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskpad/internal/profile"
	"taskpad/internal/provider"
	"taskpad/internal/status"
	"taskpad/internal/todo"
)

// FormatTask formats a task line.
// Format: "{N:>4}  [{x| }] {TEXT}\n" (4-wide right-aligned number,
// completion marker, text).
func FormatTask(w io.Writer, num int, task todo.Task) {
	marker := " "
	if task.Completed {
		marker = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s\n", num, marker, normalizeText(task.Text))
}

// FormatIdentity formats the signed-in identity for whoami.
func FormatIdentity(w io.Writer, ident provider.Identity) {
	fmt.Fprintln(w, ident.Email)
}

// FormatProfile formats the profile record as key-value lines.
func FormatProfile(w io.Writer, p profile.Profile) {
	fmt.Fprintf(w, "username:   %s\n", p.Username)
	fmt.Fprintf(w, "email:      %s\n", p.Email)
	if p.FullName != "" {
		fmt.Fprintf(w, "name:       %s\n", p.FullName)
	}
	if p.AvatarURL != "" {
		fmt.Fprintf(w, "avatar:     %s\n", p.AvatarURL)
	}
	if !p.LastLogin.IsZero() {
		fmt.Fprintf(w, "last login: %s\n", p.LastLogin.UTC().Format("2006-01-02 15:04:05"))
	}
}

// FormatStatus formats a tagged status message.
func FormatStatus(w io.Writer, msg status.Message) {
	fmt.Fprintf(w, "%s: %s\n", msg.Kind, msg.Text)
}

// normalizeText normalizes task text for display.
// - Empty or whitespace-only text becomes "(empty)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(empty)"
	}
	return text
}
