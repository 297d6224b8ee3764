package functions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRoleCatalog() *Catalog {
	c := NewCatalog()
	c.Register(Function{
		Name:   "set_role",
		Params: []ParamSpec{{Name: "role", Type: "string", Required: true}},
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			after := cloneMap(before)
			after["role"] = params["role"]
			return after, nil
		},
	})
	return c
}

func TestExecuteUnknownFunction(t *testing.T) {
	e := NewExecutor(setRoleCatalog())
	res := e.Execute(context.Background(), "unknown_fn", map[string]any{}, map[string]any{"role": nil}, time.Second)
	require.False(t, res.Success)
	assert.Contains(t, res.Result, "unknown function")
	assert.Equal(t, map[string]any{"role": nil}, res.AfterState)
}

func TestExecuteValidationFailure(t *testing.T) {
	e := NewExecutor(setRoleCatalog())
	res := e.Execute(context.Background(), "set_role", map[string]any{}, map[string]any{"role": nil}, time.Second)
	require.False(t, res.Success)
	assert.Contains(t, res.Result, "validation error")
}

func TestExecuteSuccessMutatesAfterState(t *testing.T) {
	e := NewExecutor(setRoleCatalog())
	res := e.Execute(context.Background(), "set_role", map[string]any{"role": "Director of Marketing"}, map[string]any{"role": nil}, time.Second)
	require.True(t, res.Success)
	assert.Equal(t, "Director of Marketing", res.AfterState["role"])
	assert.Nil(t, res.BeforeState["role"])
	assert.Equal(t, "Director of Marketing", res.ChangesMade["role"])
}

func TestExecuteTimesOut(t *testing.T) {
	c := NewCatalog()
	c.Register(Function{
		Name: "slow_fn",
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			time.Sleep(100 * time.Millisecond)
			return before, nil
		},
	})
	e := NewExecutor(c)
	res := e.Execute(context.Background(), "slow_fn", map[string]any{}, map[string]any{}, 5*time.Millisecond)
	require.False(t, res.Success)
	assert.Contains(t, res.Result, "timed out")
}

func TestExecuteTransformError(t *testing.T) {
	c := NewCatalog()
	c.Register(Function{
		Name: "broken_fn",
		Run: func(before map[string]any, params map[string]any) (map[string]any, error) {
			return nil, errors.New("boom")
		},
	})
	e := NewExecutor(c)
	res := e.Execute(context.Background(), "broken_fn", map[string]any{}, map[string]any{}, time.Second)
	require.False(t, res.Success)
	assert.Contains(t, res.Result, "boom")
}
