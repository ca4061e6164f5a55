package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidScene is returned when scene text cannot be used at all.
var ErrInvalidScene = errors.New("invalid scene")

// Parse decodes scene JSON produced by the scene extractor. Model output is
// often wrapped in prose or markdown fences, so the outermost JSON object is
// sliced out before decoding. A missing objects field is rejected; an empty
// objects list is not.
func Parse(text string) (*Scene, error) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrInvalidScene)
	}

	var probe struct {
		Objects json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if len(probe.Objects) == 0 || string(probe.Objects) == "null" {
		return nil, fmt.Errorf("%w: missing objects field", ErrInvalidScene)
	}

	var s Scene
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	s.normalize()
	return &s, nil
}

// UnmarshalJSON decodes an object, reading count_guess and confidence
// leniently: floats are truncated for the count, numeric strings are parsed
// and anything else becomes zero.
func (o *Object) UnmarshalJSON(data []byte) error {
	type plain Object
	var aux struct {
		plain
		CountGuess json.RawMessage `json:"count_guess"`
		Confidence json.RawMessage `json:"confidence"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = Object(aux.plain)
	o.CountGuess = int(lenientNumber(aux.CountGuess))
	o.Confidence = lenientNumber(aux.Confidence)
	return nil
}

func lenientNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var str string
		if json.Unmarshal(raw, &str) != nil {
			return 0
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(str), 64); err != nil {
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ExtractJSONObject returns the substring from the first '{' to the last '}'.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

func (s *Scene) normalize() {
	for i := range s.Objects {
		o := &s.Objects[i]
		o.Name = strings.TrimSpace(o.Name)
		o.Location = strings.TrimSpace(o.Location)
		switch {
		case o.Confidence < 0:
			o.Confidence = 0
		case o.Confidence > 1:
			o.Confidence = 1
		}
	}
	for i := range s.Candidates {
		c := &s.Candidates[i]
		if c.Type != PickObject {
			c.Type = PickGroup
		}
	}
}
