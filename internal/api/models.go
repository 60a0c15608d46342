package api

import (
	"math"
	"strings"
	"time"

	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/task"
)

// Common parameters of every fractal request. Angles are given in degrees.
type dimensionsRequest struct {
	Width      int `validate:"min=1,max=8192"`
	Height     int `validate:"min=1,max=8192"`
	Iterations int `validate:"min=0,max=64"`
	PaddingW   int `validate:"min=0"`
	PaddingH   int `validate:"min=0"`
}

func (d dimensionsRequest) dimensions() fractal.Dimensions {
	return fractal.Dimensions{
		Width:             d.Width,
		Height:            d.Height,
		TotalIterations:   d.Iterations,
		PaddingHorizontal: d.PaddingW,
		PaddingVertical:   d.PaddingH,
	}
}

// TreeRequest holds the query parameters of GET /api/fractals/tree.
type TreeRequest struct {
	dimensionsRequest
	Angle  float64 `validate:"gte=-360,lte=360"`
	Factor float64 `validate:"gte=0,lte=1"`
}

// Spec converts the request into a fractal.Tree.
func (r TreeRequest) Spec() fractal.Tree {
	return fractal.Tree{
		Dimensions:    r.dimensions(),
		Angle:         radians(r.Angle),
		ScalingFactor: r.Factor,
	}
}

// CircleRequest holds the query parameters of GET /api/fractals/circle.
type CircleRequest struct {
	dimensionsRequest
	Satellites int     `validate:"min=0,max=64"`
	Factor     float64 `validate:"gte=0,lte=1"`
	Zoom       float64 `validate:"gte=0,lte=1"`
	Rotation   float64 `validate:"gte=-360,lte=360"`
}

// Spec converts the request into a fractal.Circle.
func (r CircleRequest) Spec() fractal.Circle {
	return fractal.Circle{
		Dimensions:     r.dimensions(),
		SatelliteCount: r.Satellites,
		ScalingFactor:  r.Factor,
		ZoomFactor:     r.Zoom,
		Rotation:       radians(r.Rotation),
	}
}

// FlowerRequest holds the query parameters of GET /api/fractals/flower.
type FlowerRequest struct {
	dimensionsRequest
	Petals int     `validate:"min=0,max=64"`
	Arc    float64 `validate:"gt=0,lte=360"`
	Factor float64 `validate:"gte=0,lte=1"`
	Power  float64 `validate:"gte=0,lte=10"`
}

// Spec converts the request into a fractal.Flower.
func (r FlowerRequest) Spec() fractal.Flower {
	return fractal.Flower{
		Dimensions:    r.dimensions(),
		PetalCount:    r.Petals,
		ArcAngle:      radians(r.Arc),
		ScalingFactor: r.Factor,
		ScalingPower:  r.Power,
	}
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// GenerationResponse describes one generation record.
type GenerationResponse struct {
	ID            int64        `json:"id"`
	Kind          fractal.Kind `json:"kind"`
	Params        fractal.Spec `json:"params"`
	Status        string       `json:"status"`
	StatusMessage string       `json:"status_message"`
	Complete      bool         `json:"complete"`
	DurationMs    int64        `json:"duration_ms"`
	ImageURL      string       `json:"image_url"`
	Duplicate     bool         `json:"duplicate,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	Expiration    time.Time    `json:"expiration"`
}

// StatusResponse carries only a record's status message.
type StatusResponse struct {
	ID            int64  `json:"id"`
	StatusMessage string `json:"status_message"`
	Complete      bool   `json:"complete"`
}

func newGenerationResponse(record *task.Record, publicPrefix string) GenerationResponse {
	return GenerationResponse{
		ID:            record.ID,
		Kind:          record.Kind(),
		Params:        record.Spec,
		Status:        string(record.Status),
		StatusMessage: record.StatusMessage,
		Complete:      record.Complete,
		DurationMs:    record.DurationMs,
		ImageURL:      imageURL(publicPrefix, record.ImagePath),
		CreatedAt:     record.CreatedAt,
		Expiration:    record.Expiration,
	}
}

// imageURL joins the public prefix and a record's image path, keeping any
// query suffix of the path.
func imageURL(publicPrefix, imagePath string) string {
	return strings.TrimSuffix(publicPrefix, "/") + "/" + strings.TrimPrefix(imagePath, "/")
}
