package domain

import (
	"fmt"
	"math"
	"time"
)

// Descriptor categorical scent descriptors offered on the rating form.
type Descriptor string

const (
	DescriptorNeutral   Descriptor = "neutral"
	DescriptorFloral    Descriptor = "floral"
	DescriptorFruity    Descriptor = "fruity"
	DescriptorChemical  Descriptor = "chemical"
	DescriptorEarthy    Descriptor = "earthy"
	DescriptorSulfurous Descriptor = "sulfurous"
	DescriptorSmoky     Descriptor = "smoky"
	DescriptorOther     Descriptor = "other"
)

var descriptorSet = map[Descriptor]bool{
	DescriptorNeutral:   true,
	DescriptorFloral:    true,
	DescriptorFruity:    true,
	DescriptorChemical:  true,
	DescriptorEarthy:    true,
	DescriptorSulfurous: true,
	DescriptorSmoky:     true,
	DescriptorOther:     true,
}

// Rating one panelist's evaluation of the sample in one room.
type Rating struct {
	ResponseID   string     `json:"response_id"`
	AnalysisID   string     `json:"analysis_id"`
	TesterID     string     `json:"tester_id"`
	RoomNumber   int        `json:"room_number"`
	SampleRef    string     `json:"sample_ref"`
	Intensity    float64    `json:"intensity"`    // 0..10, 0.1 steps
	Pleasantness float64    `json:"pleasantness"` // -4..4, 0.1 steps
	Descriptor   Descriptor `json:"descriptor"`
	Description  string     `json:"description,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
}

// Validate checks the rating form constraints.
func (r *Rating) Validate() error {
	var v []string
	if r.AnalysisID == "" {
		v = append(v, "analysis_id: must not be empty")
	}
	if r.TesterID == "" {
		v = append(v, "tester_id: must not be empty")
	}
	if r.RoomNumber < 1 || r.RoomNumber > MaxRooms {
		v = append(v, fmt.Sprintf("room_number: out of range 1..%d", MaxRooms))
	}
	if r.Intensity < 0 || r.Intensity > 10 || !onTenthStep(r.Intensity) {
		v = append(v, "intensity: must be 0..10 in 0.1 increments")
	}
	if r.Pleasantness < -4 || r.Pleasantness > 4 || !onTenthStep(r.Pleasantness) {
		v = append(v, "pleasantness: must be -4..4 in 0.1 increments")
	}
	if !descriptorSet[r.Descriptor] {
		v = append(v, "descriptor: unknown value "+string(r.Descriptor))
	}
	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

func onTenthStep(f float64) bool {
	scaled := f * 10
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}
