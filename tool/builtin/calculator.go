package builtin

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentgraph/tool"
)

// CalculatorArgs are the arguments of the calculator tool.
type CalculatorArgs struct {
	FirstNum  float64 `json:"first_num" description:"First operand"`
	SecondNum float64 `json:"second_num" description:"Second operand"`
	Operation string  `json:"operation" description:"One of add, sub, mul, div" enum:"add,sub,mul,div"`
}

// ErrDivisionByZero is returned for div with a zero divisor.
var ErrDivisionByZero = errors.New("division by zero is not allowed")

// Calculator performs a basic arithmetic operation on two numbers.
func Calculator() tool.Tool {
	return tool.NewTypedTool(
		"calculator",
		"Perform a basic arithmetic operation on two numbers. Supported operations: add, sub, mul and div.",
		func(_ context.Context, in CalculatorArgs) (any, error) {
			result, err := calculate(in)
			if err != nil {
				return nil, err
			}
			return map[string]any{"result": result}, nil
		},
	)
}

func calculate(in CalculatorArgs) (float64, error) {
	switch in.Operation {
	case "add":
		return in.FirstNum + in.SecondNum, nil
	case "sub":
		return in.FirstNum - in.SecondNum, nil
	case "mul":
		return in.FirstNum * in.SecondNum, nil
	case "div":
		if in.SecondNum == 0 {
			return 0, ErrDivisionByZero
		}
		return in.FirstNum / in.SecondNum, nil
	default:
		return 0, fmt.Errorf("unsupported operation %q, use add, sub, mul or div", in.Operation)
	}
}
