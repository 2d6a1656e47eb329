// pkg/registry/schema.go
package registry

// ActivityRegistry describes the service tasks a worker manager serves.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

type Activity struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	TaskType    string   `json:"taskType"`
	InputSchema string   `json:"inputSchema"`
	ErrorCodes  []string `json:"errorCodes"`
	Timeout     string   `json:"timeout"`
	Retries     int      `json:"retries"`
	Enabled     bool     `json:"enabled"`
}
