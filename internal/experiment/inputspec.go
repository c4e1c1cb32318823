// Package experiment implements Royale's Experiment and InputSpec types:
// the immutable, named recipe for producing trials.
package experiment

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/royalerun/royale/internal/value"
)

// InputSpec maps input names to sample generators, preserving the order
// names were added (or appeared in the source document) so Sample produces
// a reproducible key iteration order.
type InputSpec struct {
	order []string
	specs map[string]value.ValueSpec
}

func NewInputSpec() *InputSpec {
	return &InputSpec{specs: map[string]value.ValueSpec{}}
}

// Set inserts or overwrites the spec for name. A duplicate key overwrites
// the value but keeps its original position in iteration order.
func (is *InputSpec) Set(name string, spec value.ValueSpec) *InputSpec {
	if _, exists := is.specs[name]; !exists {
		is.order = append(is.order, name)
	}
	is.specs[name] = spec
	return is
}

// Names returns input names in stable iteration order.
func (is *InputSpec) Names() []string {
	out := make([]string, len(is.order))
	copy(out, is.order)
	return out
}

func (is *InputSpec) Get(name string) (value.ValueSpec, bool) {
	s, ok := is.specs[name]
	return s, ok
}

func (is *InputSpec) Len() int { return len(is.order) }

// Sample produces a mapping input-name -> Value, with the same key set as
// Names(), built by invoking each spec's Sample in stable order.
func (is *InputSpec) Sample() *Sample {
	s := &Sample{order: append([]string(nil), is.order...), values: make(map[string]value.Value, len(is.order))}
	for _, name := range is.order {
		s.values[name] = is.specs[name].Sample()
	}
	return s
}

// Sample is an ordered name -> Value mapping produced by InputSpec.Sample.
type Sample struct {
	order  []string
	values map[string]value.Value
}

func NewSample() *Sample {
	return &Sample{values: map[string]value.Value{}}
}

func (s *Sample) Set(name string, v value.Value) {
	if _, exists := s.values[name]; !exists {
		s.order = append(s.order, name)
	}
	s.values[name] = v
}

func (s *Sample) Get(name string) (value.Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *Sample) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Sample) Len() int { return len(s.order) }

func (s *Sample) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := s.values[name].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	// encoding/json does not guarantee object key order on decode into a
	// map, so decode into an ordered slice of raw key/value pairs first.
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sample: expected JSON object")
	}
	*s = Sample{values: map[string]value.Value{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("sample: non-string key")
		}
		var v value.Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("sample: decoding %q: %w", key, err)
		}
		s.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func (is *InputSpec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range is.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := value.MarshalValueSpec(is.specs[name])
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (is *InputSpec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("input spec: expected JSON object")
	}
	*is = InputSpec{specs: map[string]value.ValueSpec{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("input spec: non-string key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		spec, err := value.UnmarshalValueSpec(raw)
		if err != nil {
			return fmt.Errorf("input %q: %w", key, err)
		}
		is.Set(key, spec)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
