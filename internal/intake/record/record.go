package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record accumulates the five intake fields elicited from the caller over
// the course of a conversation. Fields are only ever set, never cleared;
// repeated extraction is last-write-wins per field.
type Record struct {
	Name    string
	Email   string
	Problem string
	Time    string
	Domain  string
}

// MergeFragment attempts to interpret a single piece of model output as a
// self-contained JSON object and merges any recognized fields. Fragments
// that are not valid JSON objects on their own are discarded; the model is
// expected to eventually emit at least one fragment that parses cleanly.
// Reports whether anything was merged.
func (r *Record) MergeFragment(fragment string) bool {
	trimmed := strings.TrimSpace(fragment)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return false
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return false
	}

	merged := false
	for key, value := range fields {
		if value == "" {
			continue
		}
		switch key {
		case "name":
			r.Name = value
		case "email":
			r.Email = value
		case "problem":
			r.Problem = value
		case "time":
			r.Time = value
		case "tcp", "domain":
			// The session instructions ask the model for the caller's
			// affected domain under the key "tcp".
			r.Domain = value
		default:
			continue
		}
		merged = true
	}
	return merged
}

// Complete reports whether all five fields hold a non-empty value.
func (r *Record) Complete() bool {
	return r.Name != "" && r.Email != "" && r.Problem != "" && r.Time != "" && r.Domain != ""
}

// Empty reports whether no field has been set yet.
func (r *Record) Empty() bool {
	return r.Name == "" && r.Email == "" && r.Problem == "" && r.Time == "" && r.Domain == ""
}

// Summary renders the record as the free-text notification payload.
// Unset fields are rendered as "-".
func (r *Record) Summary() string {
	return fmt.Sprintf(
		"New phone intake:\nName: %s\nEmail: %s\nProblem: %s\nTime: %s\nDomain: %s",
		orDash(r.Name), orDash(r.Email), orDash(r.Problem), orDash(r.Time), orDash(r.Domain))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
