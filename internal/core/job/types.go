package job

import "time"

// Job is one batch of URLs submitted together. Aggregate counters and
// status are derived from the item snapshot, never incremented in place.
type Job struct {
	ID        string    `json:"job_id"`
	TotalURLs int       `json:"total_urls"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status for job-level tracking
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ItemStatus for per-URL tracking. Transitions are monotonic:
// pending -> queued -> processing -> completed|failed, each at most once.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemQueued     ItemStatus = "queued"
	ItemProcessing ItemStatus = "processing"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
)

// Terminal reports whether s is a final state.
func (s ItemStatus) Terminal() bool { return s == ItemCompleted || s == ItemFailed }

// Company holds the extracted firmographic fields. All nullable: a field
// stays nil when no extraction layer could recover it.
type Company struct {
	Name      *string `json:"company_name,omitempty"`
	Website   *string `json:"website,omitempty"`
	Industry  *string `json:"industry,omitempty"`
	Headcount *string `json:"headcount,omitempty"`
	Location  *string `json:"hq_location,omitempty"`
}

// Contact is one extracted person. All three fields are always non-empty;
// partial candidates are dropped at extraction time.
type Contact struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Email string `json:"email"`
}

// FetchMeta records raw fetch metadata for a completed item.
type FetchMeta struct {
	Bytes     int        `json:"fetch_bytes"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// Item is one URL's unit of work and its extracted result.
type Item struct {
	ID         string     `json:"item_id"`
	JobID      string     `json:"job_id"`
	URL        string     `json:"url"`
	Status     ItemStatus `json:"status"`
	LastError  *string    `json:"last_error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Company
	Contacts []Contact `json:"contacts,omitempty"`
	FetchMeta
}
