package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/phrazzld/fractal-api/internal/fractal"
)

// Record is the persisted state of one generation request.
type Record struct {
	ID   int64
	Spec fractal.Spec
	// ImagePath is the output target relative to the runner's output directory.
	// It may carry a "?query" suffix, which is not part of the file name.
	ImagePath     string
	StatusMessage string
	Status        TaskStatus
	Complete      bool
	DurationMs    int64
	CreatedAt     time.Time
	Expiration    time.Time
}

// NewRecord creates a pending record that expires ttl after now.
func NewRecord(id int64, spec fractal.Spec, imagePath string, now time.Time, ttl time.Duration) *Record {
	spec = fractal.Normalize(spec)
	return &Record{
		ID:            id,
		Spec:          spec,
		ImagePath:     imagePath,
		StatusMessage: pendingMessage(spec.Kind()),
		Status:        TaskStatusPending,
		CreatedAt:     now,
		Expiration:    now.Add(ttl),
	}
}

func pendingMessage(kind fractal.Kind) string {
	return fmt.Sprintf("Generating %s fractal...", kind)
}

// ImageFile returns the file ImagePath names, relative to the output directory.
// Records with the same ImageFile write to the same file.
func (r *Record) ImageFile() string {
	return ImageFileFromPath(r.ImagePath)
}

// Clone returns a copy of r. Specs are immutable values, so the copy is independent.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Kind returns the fractal kind of the record's spec.
func (r *Record) Kind() fractal.Kind {
	if r.Spec == nil {
		return ""
	}
	return r.Spec.Kind()
}

// Expired reports whether r is complete and its expiration is not after now.
func (r *Record) Expired(now time.Time) bool {
	return r.Complete && !r.Expiration.After(now)
}

type recordJSON struct {
	ID            int64           `json:"id"`
	Kind          fractal.Kind    `json:"kind"`
	Params        json.RawMessage `json:"params"`
	ImagePath     string          `json:"image_path"`
	StatusMessage string          `json:"status_message"`
	Status        TaskStatus      `json:"status"`
	Complete      bool            `json:"complete"`
	DurationMs    int64           `json:"duration_ms"`
	CreatedAt     time.Time       `json:"created_at"`
	Expiration    time.Time       `json:"expiration"`
}

// MarshalJSON encodes the spec as a kind tag plus its parameters.
func (r *Record) MarshalJSON() ([]byte, error) {
	params, err := fractal.MarshalParams(r.Spec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordJSON{
		ID:            r.ID,
		Kind:          r.Kind(),
		Params:        params,
		ImagePath:     r.ImagePath,
		StatusMessage: r.StatusMessage,
		Status:        r.Status,
		Complete:      r.Complete,
		DurationMs:    r.DurationMs,
		CreatedAt:     r.CreatedAt,
		Expiration:    r.Expiration,
	})
}

// UnmarshalJSON decodes the format produced by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	spec, err := fractal.UnmarshalParams(raw.Kind, raw.Params)
	if err != nil {
		return err
	}
	*r = Record{
		ID:            raw.ID,
		Spec:          spec,
		ImagePath:     raw.ImagePath,
		StatusMessage: raw.StatusMessage,
		Status:        raw.Status,
		Complete:      raw.Complete,
		DurationMs:    raw.DurationMs,
		CreatedAt:     raw.CreatedAt,
		Expiration:    raw.Expiration,
	}
	return nil
}
