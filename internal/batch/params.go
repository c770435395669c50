package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ParamType string

const (
	ParamString ParamType = "STRING"
	ParamLong   ParamType = "LONG"
	ParamDouble ParamType = "DOUBLE"
	ParamBool   ParamType = "BOOL"
)

type Parameter struct {
	Value       interface{} `json:"value"`
	Type        ParamType   `json:"type"`
	Identifying bool        `json:"identifying"`
}

// JobParameters is the immutable parameter set of one execution. Values are
// already coerced to their declared type.
type JobParameters map[string]Parameter

// ParameterKey declares a parameter a job accepts, its type and whether it
// contributes to instance identity.
type ParameterKey struct {
	Name        string
	Type        ParamType
	Identifying bool
}

func (p JobParameters) GetString(key string) (string, bool) {
	param, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := param.Value.(string)
	return s, ok
}

func (p JobParameters) GetLong(key string) (int64, bool) {
	param, ok := p[key]
	if !ok {
		return 0, false
	}
	switch v := param.Value.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func (p JobParameters) GetDouble(key string) (float64, bool) {
	param, ok := p[key]
	if !ok {
		return 0, false
	}
	switch v := param.Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (p JobParameters) GetBool(key string) (bool, bool) {
	param, ok := p[key]
	if !ok {
		return false, false
	}
	b, ok := param.Value.(bool)
	return b, ok
}

func (p JobParameters) StringOr(key, def string) string {
	if v, ok := p.GetString(key); ok {
		return v
	}
	return def
}

func (p JobParameters) LongOr(key string, def int64) int64 {
	if v, ok := p.GetLong(key); ok {
		return v
	}
	return def
}

func (p JobParameters) BoolOr(key string, def bool) bool {
	if v, ok := p.GetBool(key); ok {
		return v
	}
	return def
}

// InstanceKey hashes the identifying subset in sorted key order. Because the
// trigger id and timestamp are identifying, every trigger yields a distinct
// key and therefore a distinct instance.
func (p JobParameters) InstanceKey() string {
	keys := make([]string, 0, len(p))
	for k, param := range p {
		if param.Identifying {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, p[k].Value)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (p JobParameters) Snapshot() (datatypes.JSON, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// ParamsFromSnapshot restores a persisted snapshot. LONG values come back as
// json float64; the typed getters absorb that.
func ParamsFromSnapshot(raw datatypes.JSON) (JobParameters, error) {
	if len(raw) == 0 {
		return JobParameters{}, nil
	}
	var p JobParameters
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// BuildParameters assembles the parameter set for one trigger. The trigger id
// (generated when absent) and the trigger timestamp are injected as
// identifying parameters. Caller strings are coerced against the declared
// keys; undeclared parameters pass through as non-identifying strings.
func BuildParameters(declared []ParameterKey, triggerID string, raw map[string]string, now time.Time) (JobParameters, string, error) {
	if triggerID == "" {
		triggerID = uuid.NewString()
	}
	params := JobParameters{
		"triggerId": {Value: triggerID, Type: ParamString, Identifying: true},
		"timestamp": {Value: now.UnixMilli(), Type: ParamLong, Identifying: true},
	}
	byName := make(map[string]ParameterKey, len(declared))
	for _, key := range declared {
		byName[key.Name] = key
	}
	for name, value := range raw {
		if name == "triggerId" || name == "timestamp" {
			continue
		}
		key, ok := byName[name]
		if !ok {
			params[name] = Parameter{Value: value, Type: ParamString, Identifying: false}
			continue
		}
		coerced, err := coerce(value, key.Type)
		if err != nil {
			return nil, "", fmt.Errorf("%w: parameter %q: %v", ErrInvalidParameters, name, err)
		}
		params[name] = Parameter{Value: coerced, Type: key.Type, Identifying: key.Identifying}
	}
	return params, triggerID, nil
}

func coerce(value string, t ParamType) (interface{}, error) {
	switch t {
	case ParamString:
		return value, nil
	case ParamLong:
		n, err := strconv.ParseInt(value, 10, 64)
		return n, err
	case ParamDouble:
		f, err := strconv.ParseFloat(value, 64)
		return f, err
	case ParamBool:
		b, err := strconv.ParseBool(value)
		return b, err
	}
	return nil, fmt.Errorf("unknown parameter type %q", t)
}

// TriggerID extracts the injected trigger id from a parameter snapshot.
func TriggerID(raw datatypes.JSON) string {
	params, err := ParamsFromSnapshot(raw)
	if err != nil {
		return ""
	}
	id, _ := params.GetString("triggerId")
	return id
}
