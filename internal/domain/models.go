package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Detection is one predicted bounding box. Coordinates are normalized to [0,1],
// (Xmin, Ymin) is the upper-left corner and (Xmax, Ymax) the lower-right one.
type Detection struct {
	Xmin       float64  `json:"xmin"`
	Ymin       float64  `json:"ymin"`
	Xmax       float64  `json:"xmax"`
	Ymax       float64  `json:"ymax"`
	Confidence *float64 `json:"conf"`
	Class      Label    `json:"class"`
}

// Validate reports the first geometric or confidence problem of the box.
func (d Detection) Validate() error {
	coords := []struct {
		name  string
		value float64
	}{
		{"xmin", d.Xmin}, {"ymin", d.Ymin}, {"xmax", d.Xmax}, {"ymax", d.Ymax},
	}
	for _, c := range coords {
		if c.value < 0 || c.value > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", c.name, c.value)
		}
	}
	if d.Xmin > d.Xmax {
		return fmt.Errorf("xmin %v is greater than xmax %v", d.Xmin, d.Xmax)
	}
	if d.Ymin > d.Ymax {
		return fmt.Errorf("ymin %v is greater than ymax %v", d.Ymin, d.Ymax)
	}
	if d.Confidence != nil && (*d.Confidence < 0 || *d.Confidence > 1) {
		return fmt.Errorf("conf must be within [0,1], got %v", *d.Confidence)
	}
	return nil
}

// Label is a detection class. The model may report it either as a name or as a
// numeric code; it is written back in the same JSON type it was read in.
type Label struct {
	value   string
	numeric bool
}

func NewLabel(name string) Label {
	return Label{value: name}
}

func NewNumericLabel(code int64) Label {
	return Label{value: strconv.FormatInt(code, 10), numeric: true}
}

func (l Label) String() string { return l.value }

func (l Label) IsNumeric() bool { return l.numeric }

func (l Label) MarshalJSON() ([]byte, error) {
	if l.numeric {
		return []byte(l.value), nil
	}
	return json.Marshal(l.value)
}

func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = Label{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Label{value: s}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("class must be a string or a number: %w", err)
	}
	*l = Label{value: n.String(), numeric: true}
	return nil
}

// Prediction is the payload returned by /predict and accepted by /correct.
type Prediction struct {
	Data []Detection `json:"data" binding:"required"`
	UUID string      `json:"uuid"`
}

// PredictionRecord is the stored result of one ingestion.
type PredictionRecord struct {
	ID         uuid.UUID   `json:"uuid"`
	Detections []Detection `json:"prediction"`
	ImageRef   *string     `json:"image"`
	Correction []Detection `json:"correction"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Corrected reports whether a human correction has been stored.
func (r *PredictionRecord) Corrected() bool {
	return r.Correction != nil
}
