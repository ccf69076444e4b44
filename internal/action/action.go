// Package action defines the unit of agent behavior the risk oracle scores
// and remembers: a proposed action's inputs, outputs and model identity.
//
// Inputs and outputs are arbitrary JSON documents held in an immutable
// tagged Value, so a recorded Action can be handed to concurrent readers
// without copying.
package action

import (
	"strconv"
	"strings"
)

// Action is one proposed or recorded agent action.
type Action struct {
	Inputs    Value  `json:"inputs"`
	Outputs   Value  `json:"outputs"`
	Model     string `json:"model"`
	ModelHash string `json:"modelHash,omitempty"`
	DatasetID string `json:"datasetID,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Payload returns {"inputs": ..., "outputs": ...}, the part of the action
// the analyzer inspects. Timestamp and model metadata are left out so the
// submission time never enters the anomaly or magnitude baselines.
func (a Action) Payload() Value {
	return Object(map[string]Value{
		"inputs":  a.Inputs,
		"outputs": a.Outputs,
	})
}

// NumericLeaves flattens every numeric leaf of the action payload into a map
// keyed by its underscore-joined path, e.g. "inputs_amount" or
// "outputs_items_0_price".
func (a Action) NumericLeaves() map[string]float64 {
	return Flatten(a.Payload())
}

// SearchText returns the lower-cased JSON serialization of the payload, used
// for keyword matching.
func (a Action) SearchText() string {
	return Text(a.Payload())
}

// Flatten walks v recursively and collects numeric leaves. Object fields
// contribute "<key>_" to the path, array elements "<index>_"; the trailing
// separators are trimmed from the final key.
func Flatten(v Value) map[string]float64 {
	out := make(map[string]float64)
	flatten(v, "", out)
	return out
}

func flatten(v Value, prefix string, out map[string]float64) {
	switch v.Kind() {
	case KindObject:
		for _, k := range v.Keys() {
			f, _ := v.Get(k)
			flatten(f, prefix+k+"_", out)
		}
	case KindArray:
		for i := 0; i < v.Len(); i++ {
			flatten(v.Index(i), prefix+strconv.Itoa(i)+"_", out)
		}
	case KindNumber:
		n, _ := v.Float()
		// Keys differing only in trailing underscores ("amount", "amount_")
		// collide; the later key in sorted order wins.
		out[strings.TrimRight(prefix, "_")] = n
	}
}

// Text returns the lower-cased JSON encoding of v. Encoding never fails for
// values built through this package; an empty string is returned if it does.
func Text(v Value) string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return strings.ToLower(string(b))
}

// Merge overlays the fields of later objects on earlier ones. Non-object
// arguments are skipped.
func Merge(objs ...Value) Value {
	fields := make(map[string]Value)
	for _, o := range objs {
		if o.Kind() != KindObject {
			continue
		}
		for _, k := range o.Keys() {
			fields[k], _ = o.Get(k)
		}
	}
	return Value{kind: KindObject, obj: fields}
}

// NumberField looks up a numeric field of an object value.
func NumberField(obj Value, key string) (float64, bool) {
	f, ok := obj.Get(key)
	if !ok {
		return 0, false
	}
	return f.Float()
}
