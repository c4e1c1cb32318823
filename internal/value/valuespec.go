package value

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	mrand "math/rand"
	"sort"
	"sync"
)

// ValueSpec is a polymorphic sample generator. Sample mutates the spec's
// internal RNG state (when it has one) but is otherwise side-effect free.
type ValueSpec interface {
	Sample() Value
}

// jsonValueSpec is implemented by the built-in variants so MarshalValueSpec
// can ask each one for its own (possibly short-hand) encoding.
type jsonValueSpec interface {
	ValueSpec
	marshalSpec() ([]byte, error)
}

// Constant always samples to the value it was built with.
type Constant struct {
	Value Value
}

func NewConstant(v Value) *Constant { return &Constant{Value: v} }

func (c *Constant) Sample() Value { return c.Value }

func (c *Constant) marshalSpec() ([]byte, error) { return json.Marshal(c.Value) }

// Uniform samples a real number uniformly from [Lo, Hi].
type Uniform struct {
	Lo, Hi float64
	Seed   *int64

	mu  sync.Mutex
	rng *mrand.Rand
}

func NewUniform(lo, hi float64) *Uniform { return &Uniform{Lo: lo, Hi: hi} }

func NewDefaultUniform() *Uniform { return NewUniform(0, 1) }

func NewSeededUniform(lo, hi float64, seed int64) *Uniform {
	return &Uniform{Lo: lo, Hi: hi, Seed: &seed}
}

func (u *Uniform) Sample() Value {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ensureRNG()
	return NewNumber(u.Lo + u.rng.Float64()*(u.Hi-u.Lo))
}

func (u *Uniform) ensureRNG() {
	if u.rng != nil {
		return
	}
	u.rng = mrand.New(mrand.NewSource(resolveSeed(u.Seed)))
}

func (u *Uniform) marshalSpec() ([]byte, error) {
	if u.Seed == nil {
		return json.Marshal([2]float64{u.Lo, u.Hi})
	}
	return json.Marshal(map[string]any{
		"Uniform": map[string]any{"range": [2]float64{u.Lo, u.Hi}, "seed": *u.Seed},
	})
}

// UniformInt samples an integer uniformly from [Lo, Hi] inclusive.
type UniformInt struct {
	Lo, Hi int64
	Seed   *int64

	mu  sync.Mutex
	rng *mrand.Rand
}

func NewUniformInt(lo, hi int64) *UniformInt { return &UniformInt{Lo: lo, Hi: hi} }

func NewDefaultUniformInt() *UniformInt { return NewUniformInt(0, 1) }

func NewSeededUniformInt(lo, hi, seed int64) *UniformInt {
	return &UniformInt{Lo: lo, Hi: hi, Seed: &seed}
}

func (u *UniformInt) Sample() Value {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ensureRNG()
	span := u.Hi - u.Lo + 1
	if span <= 0 {
		return NewNumber(float64(u.Lo))
	}
	return NewNumber(float64(u.Lo + u.rng.Int63n(span)))
}

func (u *UniformInt) ensureRNG() {
	if u.rng != nil {
		return
	}
	u.rng = mrand.New(mrand.NewSource(resolveSeed(u.Seed)))
}

func (u *UniformInt) marshalSpec() ([]byte, error) {
	if u.Seed == nil {
		return json.Marshal([2]float64{float64(u.Lo), float64(u.Hi)})
	}
	return json.Marshal(map[string]any{
		"UniformInt": map[string]any{"range": [2]float64{float64(u.Lo), float64(u.Hi)}, "seed": *u.Seed},
	})
}

// emptyChoiceSentinel is what Choose samples to when it has no options.
const emptyChoiceSentinel = "<empty>"

// Choose samples one of Options uniformly, then recursively samples it.
type Choose struct {
	Options []ValueSpec
	Seed    *int64

	mu  sync.Mutex
	rng *mrand.Rand
}

func NewChoose(options ...ValueSpec) *Choose { return &Choose{Options: options} }

func NewSeededChoose(seed int64, options ...ValueSpec) *Choose {
	return &Choose{Options: options, Seed: &seed}
}

func (c *Choose) Sample() Value {
	if len(c.Options) == 0 {
		return NewString(emptyChoiceSentinel)
	}
	c.mu.Lock()
	c.ensureRNG()
	idx := c.rng.Intn(len(c.Options))
	c.mu.Unlock()
	return c.Options[idx].Sample()
}

func (c *Choose) ensureRNG() {
	if c.rng != nil {
		return
	}
	c.rng = mrand.New(mrand.NewSource(resolveSeed(c.Seed)))
}

func (c *Choose) marshalSpec() ([]byte, error) {
	raws := make([]json.RawMessage, len(c.Options))
	for i, opt := range c.Options {
		b, err := MarshalValueSpec(opt)
		if err != nil {
			return nil, fmt.Errorf("choose option %d: %w", i, err)
		}
		raws[i] = b
	}
	if c.Seed == nil {
		return json.Marshal(raws)
	}
	return json.Marshal(map[string]any{
		"Choose": map[string]any{"options": raws, "seed": *c.Seed},
	})
}

// resolveSeed returns the given seed, or a fresh one drawn from a
// nondeterministic entropy source when seed is nil (the "unset seed"
// sentinel of the source, expressed as a Go pointer instead of a magic
// unsigned sentinel value).
func resolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// --- open-variant registry -------------------------------------------------

type ctorFunc func(payload json.RawMessage) (ValueSpec, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ctorFunc{}
)

// RegisterValueSpec adds a runtime-discoverable ValueSpec variant to the
// deserializer's dispatch table, keyed by its tagged-object type name. The
// four built-in variants register themselves through the same mechanism
// (see init below), so there is no privileged built-in path.
func RegisterValueSpec(typeName string, ctor func(payload json.RawMessage) (ValueSpec, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[typeName] = ctor
}

func init() {
	RegisterValueSpec("Constant", func(payload json.RawMessage) (ValueSpec, error) {
		var v Value
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		return &Constant{Value: v}, nil
	})
	RegisterValueSpec("Uniform", func(payload json.RawMessage) (ValueSpec, error) {
		var full struct {
			Range [2]float64 `json:"range"`
			Seed  *int64     `json:"seed"`
		}
		if err := json.Unmarshal(payload, &full); err != nil {
			return nil, err
		}
		return &Uniform{Lo: full.Range[0], Hi: full.Range[1], Seed: full.Seed}, nil
	})
	RegisterValueSpec("UniformInt", func(payload json.RawMessage) (ValueSpec, error) {
		var full struct {
			Range [2]float64 `json:"range"`
			Seed  *int64     `json:"seed"`
		}
		if err := json.Unmarshal(payload, &full); err != nil {
			return nil, err
		}
		return &UniformInt{Lo: int64(full.Range[0]), Hi: int64(full.Range[1]), Seed: full.Seed}, nil
	})
	RegisterValueSpec("Choose", func(payload json.RawMessage) (ValueSpec, error) {
		var full struct {
			Options []json.RawMessage `json:"options"`
			Seed    *int64            `json:"seed"`
		}
		if err := json.Unmarshal(payload, &full); err != nil {
			return nil, err
		}
		opts := make([]ValueSpec, len(full.Options))
		for i, raw := range full.Options {
			spec, err := UnmarshalValueSpec(raw)
			if err != nil {
				return nil, fmt.Errorf("choose option %d: %w", i, err)
			}
			opts[i] = spec
		}
		return &Choose{Options: opts, Seed: full.Seed}, nil
	})
}

// MarshalValueSpec encodes a ValueSpec, preferring the short-hand form for
// built-in variants when no seed is set. User-registered variants have no
// marshaling hook and are not encoded: MarshalValueSpec returns an error
// for them.
func MarshalValueSpec(vs ValueSpec) ([]byte, error) {
	if j, ok := vs.(jsonValueSpec); ok {
		return j.marshalSpec()
	}
	return nil, fmt.Errorf("value spec of type %T does not support marshaling", vs)
}

// UnmarshalValueSpec decodes a ValueSpec, recognising the short-hands
// documented in SPEC_FULL.md §4.1: a bare number or string is a Constant; a
// two-element numeric array is Uniform or UniformInt depending on whether
// both literals are integral; any other JSON array is Choose; a single-key
// object dispatches through the type registry.
func UnmarshalValueSpec(data []byte) (ValueSpec, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("value spec: empty input")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return &Constant{Value: NewString(s)}, nil

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if len(raw) == 2 && isBareNumber(raw[0]) && isBareNumber(raw[1]) {
			lo, hi, err := parseBareRange(raw)
			if err != nil {
				return nil, err
			}
			if isIntegralLiteral(raw[0]) && isIntegralLiteral(raw[1]) {
				return &UniformInt{Lo: int64(lo), Hi: int64(hi)}, nil
			}
			return &Uniform{Lo: lo, Hi: hi}, nil
		}
		opts := make([]ValueSpec, len(raw))
		for i, r := range raw {
			spec, err := UnmarshalValueSpec(r)
			if err != nil {
				return nil, fmt.Errorf("choose option %d: %w", i, err)
			}
			opts[i] = spec
		}
		return &Choose{Options: opts}, nil

	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if len(m) != 1 {
			return nil, fmt.Errorf("value spec: tagged object must have exactly one key, got %d", len(m))
		}
		tags := make([]string, 0, 1)
		for k := range m {
			tags = append(tags, k)
		}
		sort.Strings(tags)
		tag := tags[0]

		registryMu.RLock()
		ctor, ok := registry[tag]
		registryMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("value spec: unknown type %q", tag)
		}
		return ctor(m[tag])

	default:
		var f float64
		if err := json.Unmarshal(data, &f); err == nil {
			return &Constant{Value: NewNumber(f)}, nil
		}
		return nil, fmt.Errorf("value spec: unrecognised JSON shape %q", data)
	}
}

func isBareNumber(raw json.RawMessage) bool {
	var f float64
	return json.Unmarshal(raw, &f) == nil
}

func isIntegralLiteral(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return !bytes.ContainsAny(s, ".eE")
}

func parseBareRange(raw []json.RawMessage) (lo, hi float64, err error) {
	if err := json.Unmarshal(raw[0], &lo); err != nil {
		return 0, 0, err
	}
	if err := json.Unmarshal(raw[1], &hi); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}
