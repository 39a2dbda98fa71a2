package tools

import (
	"context"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalmcp/calculator-mcp/internal/session"
)

func newTestSet() *toolSet {
	logger := log.New(io.Discard)
	return &toolSet{
		sessions: session.NewManager(30*time.Minute, logger),
		logger:   logger,
	}
}

func callReq(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestArithmeticTools(t *testing.T) {
	ts := newTestSet()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		a, b    float64
		want    string
	}{
		{"add", ts.handleAdd, 2, 3, "## Addition Result\n\n2 + 3 = 5"},
		{"subtract", ts.handleSubtract, 10, 4, "## Subtraction Result\n\n10 - 4 = 6"},
		{"multiply", ts.handleMultiply, 6, 7, "## Multiplication Result\n\n6 × 7 = 42"},
		{"divide", ts.handleDivide, 15, 4, "## Division Result\n\n15 ÷ 4 = 3.75"},
		{"modulo", ts.handleModulo, 10, 3, "## Modulo Result\n\n10 % 3 = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.handler(context.Background(), callReq(tt.name, map[string]any{"a": tt.a, "b": tt.b}))
			require.NoError(t, err)
			assert.False(t, res.IsError)
			assert.Equal(t, tt.want, resultText(t, res))
		})
	}
}

func TestDivideByZero(t *testing.T) {
	ts := newTestSet()

	res, err := ts.handleDivide(context.Background(), callReq("divide", map[string]any{"a": 10.0, "b": 0.0}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "division by zero")
}

func TestModulo(t *testing.T) {
	ts := newTestSet()

	t.Run("negative dividend follows divisor sign", func(t *testing.T) {
		res, err := ts.handleModulo(context.Background(), callReq("modulo", map[string]any{"a": -7.0, "b": 3.0}))
		require.NoError(t, err)
		assert.Equal(t, "## Modulo Result\n\n-7 % 3 = 2", resultText(t, res))
	})

	t.Run("zero divisor", func(t *testing.T) {
		res, err := ts.handleModulo(context.Background(), callReq("modulo", map[string]any{"a": 7.0, "b": 0.0}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestPower(t *testing.T) {
	ts := newTestSet()

	t.Run("basic", func(t *testing.T) {
		res, err := ts.handlePower(context.Background(), callReq("power", map[string]any{"base": 2.0, "exponent": 10.0}))
		require.NoError(t, err)
		assert.Equal(t, "## Power Result\n\n2 ^ 10 = 1024", resultText(t, res))
	})

	t.Run("overflow", func(t *testing.T) {
		res, err := ts.handlePower(context.Background(), callReq("power", map[string]any{"base": 10.0, "exponent": 400.0}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "too large")
	})

	t.Run("complex result", func(t *testing.T) {
		res, err := ts.handlePower(context.Background(), callReq("power", map[string]any{"base": -1.0, "exponent": 0.5}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestCalculate(t *testing.T) {
	ts := newTestSet()
	call := func(expression string) (*mcp.CallToolResult, error) {
		return ts.handleCalculate(context.Background(), callReq("calculate", map[string]any{"expression": expression}))
	}

	t.Run("precedence", func(t *testing.T) {
		res, err := call("2 + 3 * 4")
		require.NoError(t, err)
		assert.Equal(t, "## Calculation Result\n\n2 + 3 * 4 = 14", resultText(t, res))
	})

	t.Run("parentheses", func(t *testing.T) {
		res, err := call("(2 + 3) * 4")
		require.NoError(t, err)
		assert.Equal(t, "## Calculation Result\n\n(2 + 3) * 4 = 20", resultText(t, res))
	})

	t.Run("division by zero", func(t *testing.T) {
		res, err := call("10 / 0")
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "division by zero")
	})

	t.Run("syntax error", func(t *testing.T) {
		res, err := call("2 +")
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("code injection is rejected", func(t *testing.T) {
		res, err := call("__import__('os')")
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "disallowed character")
	})

	t.Run("missing argument", func(t *testing.T) {
		res, err := ts.handleCalculate(context.Background(), callReq("calculate", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestSquareRoot(t *testing.T) {
	ts := newTestSet()

	res, err := ts.handleSquareRoot(context.Background(), callReq("square_root", map[string]any{"number": 9.0}))
	require.NoError(t, err)
	assert.Equal(t, "## Square Root Result\n\n√9 = 3", resultText(t, res))

	res, err = ts.handleSquareRoot(context.Background(), callReq("square_root", map[string]any{"number": -1.0}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestFactorial(t *testing.T) {
	ts := newTestSet()
	call := func(n float64) (*mcp.CallToolResult, error) {
		return ts.handleFactorial(context.Background(), callReq("factorial", map[string]any{"number": n}))
	}

	t.Run("small", func(t *testing.T) {
		res, err := call(5)
		require.NoError(t, err)
		assert.Equal(t, "## Factorial Result\n\n5! = 120", resultText(t, res))
	})

	t.Run("zero", func(t *testing.T) {
		res, err := call(0)
		require.NoError(t, err)
		assert.Equal(t, "## Factorial Result\n\n0! = 1", resultText(t, res))
	})

	t.Run("exact at twenty one", func(t *testing.T) {
		// 21! overflows int64; the big.Int path keeps it exact.
		res, err := call(21)
		require.NoError(t, err)
		assert.Equal(t, "## Factorial Result\n\n21! = 51090942171709440000", resultText(t, res))
	})

	t.Run("negative", func(t *testing.T) {
		res, err := call(-1)
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("non integer", func(t *testing.T) {
		res, err := call(3.5)
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("too large", func(t *testing.T) {
		res, err := call(171)
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestLogarithm(t *testing.T) {
	ts := newTestSet()

	// Log results come from math.Log ratios, which can land a few ulps
	// off the integer answer, so the value is checked numerically.
	logValue := func(t *testing.T, res *mcp.CallToolResult) float64 {
		t.Helper()
		text := resultText(t, res)
		idx := strings.LastIndex(text, "= ")
		require.Positive(t, idx)
		v, err := strconv.ParseFloat(text[idx+2:], 64)
		require.NoError(t, err)
		return v
	}

	t.Run("explicit base", func(t *testing.T) {
		res, err := ts.handleLogarithm(context.Background(), callReq("logarithm", map[string]any{"number": 8.0, "base": 2.0}))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, res), "log_2(8) = ")
		assert.InDelta(t, 3, logValue(t, res), 1e-9)
	})

	t.Run("default base ten", func(t *testing.T) {
		res, err := ts.handleLogarithm(context.Background(), callReq("logarithm", map[string]any{"number": 100.0}))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, res), "log_10(100) = ")
		assert.InDelta(t, 2, logValue(t, res), 1e-9)
	})

	t.Run("non-positive number", func(t *testing.T) {
		res, err := ts.handleLogarithm(context.Background(), callReq("logarithm", map[string]any{"number": -5.0}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("base one", func(t *testing.T) {
		res, err := ts.handleLogarithm(context.Background(), callReq("logarithm", map[string]any{"number": 10.0, "base": 1.0}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestTrigonometric(t *testing.T) {
	ts := newTestSet()
	call := func(args map[string]any) (*mcp.CallToolResult, error) {
		return ts.handleTrigonometric(context.Background(), callReq("trigonometric", args))
	}

	t.Run("cos zero radians", func(t *testing.T) {
		res, err := call(map[string]any{"function": "cos", "angle": 0.0})
		require.NoError(t, err)
		assert.Equal(t, "## Cosine Result\n\ncos(0 rad) = 1", resultText(t, res))
	})

	t.Run("sin zero", func(t *testing.T) {
		res, err := call(map[string]any{"function": "sin", "angle": 0.0})
		require.NoError(t, err)
		assert.Equal(t, "## Sine Result\n\nsin(0 rad) = 0", resultText(t, res))
	})

	t.Run("degrees conversion", func(t *testing.T) {
		res, err := call(map[string]any{"function": "cos", "angle": 180.0, "is_radians": false})
		require.NoError(t, err)
		assert.Equal(t, "## Cosine Result\n\ncos(180°) = -1", resultText(t, res))
	})

	t.Run("case insensitive function", func(t *testing.T) {
		res, err := call(map[string]any{"function": "SIN", "angle": 0.0})
		require.NoError(t, err)
		assert.False(t, res.IsError)
	})

	t.Run("tangent undefined at ninety degrees", func(t *testing.T) {
		res, err := call(map[string]any{"function": "tan", "angle": 90.0, "is_radians": false})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "undefined")
	})

	t.Run("unknown function", func(t *testing.T) {
		res, err := call(map[string]any{"function": "sec", "angle": 1.0})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestHealthCheck(t *testing.T) {
	ts := newTestSet()

	_, err := ts.sessions.GetOrCreate("")
	require.NoError(t, err)

	res, err := ts.handleHealthCheck(context.Background(), callReq("health_check", nil))
	require.NoError(t, err)
	assert.Equal(t, "Calculator MCP server is running and healthy (1 live sessions)", resultText(t, res))
}

func TestInvalidArguments(t *testing.T) {
	ts := newTestSet()

	res, err := ts.handleAdd(context.Background(), callReq("add", map[string]any{"a": "two", "b": 3.0}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `parameter "a" must be a number`)

	res, err = ts.handleTrigonometric(context.Background(), callReq("trigonometric", map[string]any{"function": "sin", "angle": 1.0, "is_radians": "yes"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
