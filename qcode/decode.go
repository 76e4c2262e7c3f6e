package qcode

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidDescriptor is returned for descriptors that fail validation.
var ErrInvalidDescriptor = errors.New("qcode: invalid descriptor")

var validate = validator.New()

// Decode builds a descriptor from a generic map such as one read from a
// YAML or JSON file. Select entries and order-by entries may be given in
// their short string forms ("name AS alias", "col DESC").
func Decode(in any) (*Descriptor, error) {
	var d Descriptor

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			fieldHook,
			orderByHook,
			conditionHook,
		),
		WeaklyTypedInput: true,
		Result:           &d,
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("qcode: decode: %w", err)
	}
	return &d, d.Validate()
}

// Validate checks the descriptor for structural errors.
func (d *Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, err.Error())
	}

	switch d.Type.Normalize() {
	case QTSelect, QTInsert, QTBatchInsert, QTUpdate, QTReplace, QTRemove:
	default:
		return fmt.Errorf("%w: unsupported type '%s'", ErrInvalidDescriptor, d.Type)
	}

	for i, c := range d.Where {
		if c.Open && c.Close {
			return fmt.Errorf("%w: where[%d] is both an open and a close marker",
				ErrInvalidDescriptor, i)
		}
		if c.IsLeaf() && c.Column == "" {
			return fmt.Errorf("%w: where[%d] has no column", ErrInvalidDescriptor, i)
		}
	}
	return nil
}

func fieldHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(Field{}) || from.Kind() != reflect.String {
		return data, nil
	}
	f := ParseField(data.(string))
	return map[string]any{"name": f.Name, "alias": f.Alias, "raw": f.Raw}, nil
}

func orderByHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(OrderBy{}) || from.Kind() != reflect.String {
		return data, nil
	}
	parts := strings.Fields(data.(string))
	if len(parts) == 0 {
		return data, nil
	}
	desc := len(parts) > 1 && strings.EqualFold(parts[1], "desc")
	return map[string]any{"col": parts[0], "desc": desc}, nil
}

// conditionHook accepts the compact list form [column, op, value] and the
// markers "(" and ")" optionally prefixed by a connective ("OR (").
func conditionHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(Condition{}) {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		parts := strings.Fields(v)
		logic := And
		if len(parts) == 2 {
			logic = Logic(strings.ToUpper(parts[0]))
			parts = parts[1:]
		}
		if len(parts) != 1 {
			return data, nil
		}
		switch parts[0] {
		case "(":
			return map[string]any{"logic": logic, "open": true}, nil
		case ")":
			return map[string]any{"logic": logic, "close": true}, nil
		}
	case []any:
		if len(v) < 2 || len(v) > 4 {
			return data, nil
		}
		m := map[string]any{"logic": And, "column": v[0], "op": v[1]}
		if len(v) > 2 {
			m["value"] = v[2]
		}
		if len(v) > 3 {
			m["logic"] = v[3]
		}
		return m, nil
	}
	return data, nil
}
