package batch

import (
	"encoding/json"
	"fmt"
	"sync"

	"gorm.io/datatypes"
)

// ExecutionContext is the scalar key/value state a pipeline carries between
// steps. It is persisted as JSON after every step, so values are limited to
// strings, integers, floats and bools.
type ExecutionContext struct {
	mu     sync.Mutex
	values map[string]interface{}
}

func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{values: map[string]interface{}{}}
}

func ContextFromSnapshot(raw datatypes.JSON) (*ExecutionContext, error) {
	ec := NewExecutionContext()
	if len(raw) == 0 {
		return ec, nil
	}
	if err := json.Unmarshal(raw, &ec.values); err != nil {
		return nil, err
	}
	return ec, nil
}

func (ec *ExecutionContext) Snapshot() (datatypes.JSON, error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	raw, err := json.Marshal(ec.values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func (ec *ExecutionContext) put(key string, value interface{}) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.values[key] = value
}

func (ec *ExecutionContext) PutString(key, value string) { ec.put(key, value) }
func (ec *ExecutionContext) PutLong(key string, value int64) {
	ec.put(key, value)
}
func (ec *ExecutionContext) PutDouble(key string, value float64) {
	ec.put(key, value)
}
func (ec *ExecutionContext) PutBool(key string, value bool) { ec.put(key, value) }

func (ec *ExecutionContext) GetString(key string) (string, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetLong tolerates float64 because a persisted snapshot round-trips numbers
// through JSON.
func (ec *ExecutionContext) GetLong(key string) (int64, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	switch v := ec.values[key].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	}
	return 0, false
}

func (ec *ExecutionContext) GetDouble(key string) (float64, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	switch v := ec.values[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (ec *ExecutionContext) GetBool(key string) (bool, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.values[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (ec *ExecutionContext) String() string {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return fmt.Sprintf("%v", ec.values)
}
