package battleserver

import (
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// encode converts v to a Struct through its JSON form.
//
// Precondition: v marshals to a JSON object.
func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return out, nil
}

// request reads typed fields out of a request Struct.
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(in *structpb.Struct) request {
	return request{fields: in.GetFields()}
}

func (r request) str(key string) string {
	return r.fields[key].GetStringValue()
}

func (r request) boolean(key string) bool {
	return r.fields[key].GetBoolValue()
}

// integer reads a whole number; ok is false when the field is missing or
// fractional.
func (r request) integer(key string) (int64, bool) {
	v, present := r.fields[key]
	if !present {
		return 0, false
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, false
	}
	return int64(n.NumberValue), true
}

func (r request) ints(key string) ([]int, bool) {
	list := r.fields[key].GetListValue()
	if list == nil {
		return nil, false
	}
	out := make([]int, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		n, isNum := v.GetKind().(*structpb.Value_NumberValue)
		if !isNum || n.NumberValue != math.Trunc(n.NumberValue) {
			return nil, false
		}
		out = append(out, int(n.NumberValue))
	}
	return out, true
}

func (r request) cell() (grid.Position, bool) {
	x, okX := r.integer("x")
	y, okY := r.integer("y")
	return grid.Position{X: int(x), Y: int(y)}, okX && okY
}
