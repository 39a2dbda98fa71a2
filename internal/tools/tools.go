// Package tools defines the calculator tool set and registers it with an
// MCP server. Arithmetic is plain float64 math; the calculate tool routes
// through the safe expression evaluator; factorial is exact via math/big.
// Validation failures are returned as tool errors so clients see them as
// results, not protocol failures.
package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/evalmcp/calculator-mcp/internal/eval"
	"github.com/evalmcp/calculator-mcp/internal/metrics"
	"github.com/evalmcp/calculator-mcp/internal/session"
)

// maxFactorial bounds factorial input so a single call cannot burn
// unbounded CPU on untrusted input.
const maxFactorial = 170

// Deps are the collaborators the tool handlers need.
type Deps struct {
	Sessions *session.Manager
	Logger   *log.Logger
}

type toolSet struct {
	sessions *session.Manager
	logger   *log.Logger
}

// Register adds every calculator tool to the server.
func Register(srv *server.MCPServer, deps Deps) {
	ts := &toolSet{sessions: deps.Sessions, logger: deps.Logger}

	srv.AddTool(mcp.NewTool("add",
		mcp.WithDescription("Add two numbers together."),
		mcp.WithNumber("a", mcp.Description("First number"), mcp.Required()),
		mcp.WithNumber("b", mcp.Description("Second number"), mcp.Required()),
	), ts.handleAdd)

	srv.AddTool(mcp.NewTool("subtract",
		mcp.WithDescription("Subtract the second number from the first."),
		mcp.WithNumber("a", mcp.Description("First number"), mcp.Required()),
		mcp.WithNumber("b", mcp.Description("Second number"), mcp.Required()),
	), ts.handleSubtract)

	srv.AddTool(mcp.NewTool("multiply",
		mcp.WithDescription("Multiply two numbers together."),
		mcp.WithNumber("a", mcp.Description("First number"), mcp.Required()),
		mcp.WithNumber("b", mcp.Description("Second number"), mcp.Required()),
	), ts.handleMultiply)

	srv.AddTool(mcp.NewTool("divide",
		mcp.WithDescription("Divide the first number by the second."),
		mcp.WithNumber("a", mcp.Description("First number (dividend)"), mcp.Required()),
		mcp.WithNumber("b", mcp.Description("Second number (divisor)"), mcp.Required()),
	), ts.handleDivide)

	srv.AddTool(mcp.NewTool("power",
		mcp.WithDescription("Raise the base to the power of the exponent."),
		mcp.WithNumber("base", mcp.Description("The base number"), mcp.Required()),
		mcp.WithNumber("exponent", mcp.Description("The exponent"), mcp.Required()),
	), ts.handlePower)

	srv.AddTool(mcp.NewTool("modulo",
		mcp.WithDescription("Calculate the remainder when the first number is divided by the second."),
		mcp.WithNumber("a", mcp.Description("First number (dividend)"), mcp.Required()),
		mcp.WithNumber("b", mcp.Description("Second number (divisor)"), mcp.Required()),
	), ts.handleModulo)

	srv.AddTool(mcp.NewTool("calculate",
		mcp.WithDescription("Evaluate a simple arithmetic expression, e.g. \"2 + 3 * 4\". Only numbers, parentheses and + - * / are allowed."),
		mcp.WithString("expression", mcp.Description("The expression to evaluate"), mcp.Required()),
	), ts.handleCalculate)

	srv.AddTool(mcp.NewTool("square_root",
		mcp.WithDescription("Calculate the square root of a number."),
		mcp.WithNumber("number", mcp.Description("The number to find the square root of"), mcp.Required()),
	), ts.handleSquareRoot)

	srv.AddTool(mcp.NewTool("factorial",
		mcp.WithDescription("Calculate the factorial of a non-negative integer."),
		mcp.WithNumber("number", mcp.Description("The non-negative integer to find the factorial of"), mcp.Required()),
	), ts.handleFactorial)

	srv.AddTool(mcp.NewTool("logarithm",
		mcp.WithDescription("Calculate the logarithm of a number with the specified base."),
		mcp.WithNumber("number", mcp.Description("The number to find the logarithm of"), mcp.Required()),
		mcp.WithNumber("base", mcp.Description("The base of the logarithm"), mcp.DefaultNumber(10)),
	), ts.handleLogarithm)

	srv.AddTool(mcp.NewTool("trigonometric",
		mcp.WithDescription("Calculate trigonometric functions (sin, cos, tan)."),
		mcp.WithString("function", mcp.Description("The trigonometric function to use"), mcp.Required(), mcp.Enum("sin", "cos", "tan")),
		mcp.WithNumber("angle", mcp.Description("The angle value"), mcp.Required()),
		mcp.WithBoolean("is_radians", mcp.Description("Whether the angle is in radians (true) or degrees (false)"), mcp.DefaultBool(true)),
	), ts.handleTrigonometric)

	srv.AddTool(mcp.NewTool("health_check",
		mcp.WithDescription("Check if the server is running and responsive."),
	), ts.handleHealthCheck)
}

// floatArg extracts a required numeric argument.
func floatArg(req mcp.CallToolRequest, key string) (float64, bool) {
	v, ok := req.GetArguments()[key].(float64)
	return v, ok
}

// floatArgOr extracts an optional numeric argument with a default.
func floatArgOr(req mcp.CallToolRequest, key string, def float64) (float64, bool) {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return def, true
	}
	v, ok := raw.(float64)
	return v, ok
}

// boolArgOr extracts an optional boolean argument with a default.
func boolArgOr(req mcp.CallToolRequest, key string, def bool) (bool, bool) {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return def, true
	}
	v, ok := raw.(bool)
	return v, ok
}

func stringArg(req mcp.CallToolRequest, key string) (string, bool) {
	v, ok := req.GetArguments()[key].(string)
	return v, ok
}

func badArg(key, want string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("parameter %q must be a %s", key, want))
}

// binaryArgs extracts the "a" and "b" arguments shared by the basic
// arithmetic tools.
func binaryArgs(req mcp.CallToolRequest) (float64, float64, *mcp.CallToolResult) {
	a, ok := floatArg(req, "a")
	if !ok {
		return 0, 0, badArg("a", "number")
	}
	b, ok := floatArg(req, "b")
	if !ok {
		return 0, 0, badArg("b", "number")
	}
	return a, b, nil
}

// formatResult renders a calculation in the shared markdown shape.
func formatResult(operation string, a, b, result float64, operator string) *mcp.CallToolResult {
	return mcp.NewToolResultText(fmt.Sprintf("## %s Result\n\n%s %s %s = %s",
		operation, eval.FormatNumber(a), operator, eval.FormatNumber(b), eval.FormatNumber(result)))
}

func (ts *toolSet) handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, errRes := binaryArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	ts.logger.Debug("calculating addition", "a", a, "b", b)
	return formatResult("Addition", a, b, a+b, "+"), nil
}

func (ts *toolSet) handleSubtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, errRes := binaryArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	ts.logger.Debug("calculating subtraction", "a", a, "b", b)
	return formatResult("Subtraction", a, b, a-b, "-"), nil
}

func (ts *toolSet) handleMultiply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, errRes := binaryArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	ts.logger.Debug("calculating multiplication", "a", a, "b", b)
	return formatResult("Multiplication", a, b, a*b, "×"), nil
}

func (ts *toolSet) handleDivide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, errRes := binaryArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	if b == 0 {
		ts.logger.Warn("division by zero attempted", "a", a)
		return mcp.NewToolResultError("division by zero is not allowed"), nil
	}
	ts.logger.Debug("calculating division", "a", a, "b", b)
	return formatResult("Division", a, b, a/b, "÷"), nil
}

func (ts *toolSet) handlePower(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, ok := floatArg(req, "base")
	if !ok {
		return badArg("base", "number"), nil
	}
	exponent, ok := floatArg(req, "exponent")
	if !ok {
		return badArg("exponent", "number"), nil
	}
	ts.logger.Debug("calculating power", "base", base, "exponent", exponent)

	result := math.Pow(base, exponent)
	switch {
	case math.IsInf(result, 0) && !math.IsInf(base, 0) && !math.IsInf(exponent, 0):
		return mcp.NewToolResultError("result too large to compute"), nil
	case math.IsNaN(result) && !math.IsNaN(base) && !math.IsNaN(exponent):
		return mcp.NewToolResultError("result is not a real number"), nil
	}
	return formatResult("Power", base, exponent, result, "^"), nil
}

func (ts *toolSet) handleModulo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, errRes := binaryArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	if b == 0 {
		ts.logger.Warn("modulo by zero attempted", "a", a)
		return mcp.NewToolResultError("modulo by zero is not allowed"), nil
	}
	ts.logger.Debug("calculating modulo", "a", a, "b", b)

	// math.Mod takes the sign of the dividend; the mathematical
	// convention here is that the result follows the divisor.
	result := math.Mod(a, b)
	if result != 0 && (result < 0) != (b < 0) {
		result += b
	}
	return formatResult("Modulo", a, b, result, "%"), nil
}

func (ts *toolSet) handleCalculate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expression, ok := stringArg(req, "expression")
	if !ok {
		return badArg("expression", "string"), nil
	}
	ts.logger.Debug("evaluating expression", "expression", expression)

	start := time.Now()
	value, err := eval.Evaluate(expression)
	metrics.EvalDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var evalErr *eval.Error
		if errors.As(err, &evalErr) && evalErr.Kind == eval.KindDisallowedToken {
			ts.logger.Warn("disallowed characters in expression", "expression", expression, "pos", evalErr.Pos)
			return mcp.NewToolResultError(fmt.Sprintf(
				"expression contains a disallowed character at position %d; only numbers, parentheses and + - * / are allowed", evalErr.Pos)), nil
		}
		ts.logger.Warn("expression evaluation failed", "expression", expression, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("cannot evaluate expression: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("## Calculation Result\n\n%s = %s",
		expression, eval.FormatNumber(value))), nil
}

func (ts *toolSet) handleSquareRoot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, ok := floatArg(req, "number")
	if !ok {
		return badArg("number", "number"), nil
	}
	if number < 0 {
		ts.logger.Warn("square root of negative number attempted", "number", number)
		return mcp.NewToolResultError("cannot calculate the square root of a negative number"), nil
	}
	ts.logger.Debug("calculating square root", "number", number)
	return mcp.NewToolResultText(fmt.Sprintf("## Square Root Result\n\n√%s = %s",
		eval.FormatNumber(number), eval.FormatNumber(math.Sqrt(number)))), nil
}

func (ts *toolSet) handleFactorial(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, ok := floatArg(req, "number")
	if !ok {
		return badArg("number", "number"), nil
	}
	if number < 0 || number != math.Trunc(number) {
		ts.logger.Warn("invalid factorial input", "number", number)
		return mcp.NewToolResultError("factorial is only defined for non-negative integers"), nil
	}
	if number > maxFactorial {
		ts.logger.Warn("factorial input too large", "number", number)
		return mcp.NewToolResultError(fmt.Sprintf("input too large; factorial is limited to %d", maxFactorial)), nil
	}
	ts.logger.Debug("calculating factorial", "number", number)

	n := int64(number)
	result := new(big.Int).MulRange(1, n)
	return mcp.NewToolResultText(fmt.Sprintf("## Factorial Result\n\n%d! = %s", n, result.String())), nil
}

func (ts *toolSet) handleLogarithm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, ok := floatArg(req, "number")
	if !ok {
		return badArg("number", "number"), nil
	}
	base, ok := floatArgOr(req, "base", 10)
	if !ok {
		return badArg("base", "number"), nil
	}
	if number <= 0 {
		ts.logger.Warn("logarithm of non-positive number attempted", "number", number)
		return mcp.NewToolResultError("cannot calculate the logarithm of a non-positive number"), nil
	}
	if base <= 0 || base == 1 {
		ts.logger.Warn("invalid logarithm base", "base", base)
		return mcp.NewToolResultError("logarithm base must be positive and not equal to 1"), nil
	}
	ts.logger.Debug("calculating logarithm", "number", number, "base", base)

	result := math.Log(number) / math.Log(base)
	return mcp.NewToolResultText(fmt.Sprintf("## Logarithm Result\n\nlog_%s(%s) = %s",
		eval.FormatNumber(base), eval.FormatNumber(number), eval.FormatNumber(result))), nil
}

func (ts *toolSet) handleTrigonometric(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	function, ok := stringArg(req, "function")
	if !ok {
		return badArg("function", "string"), nil
	}
	angle, ok := floatArg(req, "angle")
	if !ok {
		return badArg("angle", "number"), nil
	}
	isRadians, ok := boolArgOr(req, "is_radians", true)
	if !ok {
		return badArg("is_radians", "boolean"), nil
	}

	function = strings.ToLower(function)
	angleRad := angle
	angleDisplay := eval.FormatNumber(angle) + " rad"
	if !isRadians {
		angleRad = angle * math.Pi / 180
		angleDisplay = eval.FormatNumber(angle) + "°"
	}
	ts.logger.Debug("calculating trigonometric function", "function", function, "angle", angleDisplay)

	var funcName string
	var result float64
	switch function {
	case "sin":
		funcName, result = "Sine", math.Sin(angleRad)
	case "cos":
		funcName, result = "Cosine", math.Cos(angleRad)
	case "tan":
		// Reject angles where tan blows up, i.e. odd multiples of π/2.
		if math.Abs(math.Cos(angleRad)) < 1e-10 {
			ts.logger.Warn("tangent undefined", "angle", angleDisplay)
			return mcp.NewToolResultError(fmt.Sprintf("tangent is undefined at %s (multiple of π/2)", angleDisplay)), nil
		}
		funcName, result = "Tangent", math.Tan(angleRad)
	default:
		return mcp.NewToolResultError("function must be 'sin', 'cos', or 'tan'"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("## %s Result\n\n%s(%s) = %s",
		funcName, function, angleDisplay, eval.FormatNumber(result))), nil
}

func (ts *toolSet) handleHealthCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := ts.sessions.Count()
	ts.logger.Debug("health check requested", "sessions", count)
	return mcp.NewToolResultText(fmt.Sprintf(
		"Calculator MCP server is running and healthy (%d live sessions)", count)), nil
}
