// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, reg.Validate()
}

// Validate rejects entries without an id or task type and duplicate task types.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]string, len(r.Activities))
	for i, a := range r.Activities {
		if a.ID == "" || a.TaskType == "" {
			return fmt.Errorf("activity %d: id and taskType are required", i)
		}
		if prev, ok := seen[a.TaskType]; ok {
			return fmt.Errorf("task type %q registered by both %s and %s", a.TaskType, prev, a.ID)
		}
		seen[a.TaskType] = a.ID
	}
	return nil
}

// Find returns the activity serving taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Enabled lists the activities that have a running worker.
func (r *ActivityRegistry) Enabled() []Activity {
	var out []Activity
	for _, a := range r.Activities {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out
}
