/*
 *	Copyright 2025 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package autodiff

import (
	"reflect"
	"strings"

	"github.com/ionml/ion/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Function is the operation node of the graph. Concrete operations implement it, hold references to their
// input Variables, and supply the math of their forward and backward steps.
//
// The Go type system enforces conformance at compile time, the usual idiom being:
//
//	var _ autodiff.Function = (*MyOp)(nil)
//
// For values only known at runtime, see AsFunction and RegisterFunctionType.
type Function interface {
	// Forward computes the output value from the inputs and returns it wrapped in a new Variable whose producer
	// is this Function. Whether the output requires a gradient is up to the operation, typically it does if any
	// of its inputs do.
	Forward() *Variable

	// Backward receives the gradient with respect to the output of the operation, computes the gradient with
	// respect to each input and passes it to the input's Variable.Backward.
	//
	// It must not mutate the value of its inputs.
	Backward(gradient *tensors.Tensor)
}

// Call is the invocation shorthand for a Function: it is the same as f.Forward().
func Call(f Function) *Variable {
	return f.Forward()
}

// HasInputs is an optional interface for Functions that expose their input Variables. It is used by
// introspection tools, like Sources and Summary, to walk the graph.
type HasInputs interface {
	Inputs() []*Variable
}

// HasName is an optional interface for Functions that provide their own name for printing.
type HasName interface {
	Name() string
}

var functionType = reflect.TypeOf((*Function)(nil)).Elem()

// AsFunction checks whether candidate implements Function, and returns it as one.
//
// It returns an error wrapping ErrInterfaceNotImplemented otherwise, listing the missing methods.
func AsFunction(candidate any) (Function, error) {
	if candidate == nil {
		return nil, errors.Wrap(ErrInterfaceNotImplemented, "nil value given")
	}
	if f, ok := candidate.(Function); ok {
		return f, nil
	}
	return nil, notImplementedError(reflect.TypeOf(candidate))
}

// notImplementedError describes why t doesn't implement Function.
func notImplementedError(t reflect.Type) error {
	var missing []string
	for ii := range functionType.NumMethod() {
		name := functionType.Method(ii).Name
		if _, found := t.MethodByName(name); !found {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return errors.Wrapf(ErrInterfaceNotImplemented, "type %s has methods with incompatible signatures", t)
	}
	return errors.Wrapf(ErrInterfaceNotImplemented, "type %s is missing method(s) %s", t, strings.Join(missing, ", "))
}

// ForwardFn computes the output value of an operation built with NewFunction, and whether the output
// requires a gradient.
type ForwardFn func() (value *tensors.Tensor, requiresGradient bool)

// BackwardFn routes the gradient with respect to the output of an operation built with NewFunction to
// its inputs, by calling their Variable.Backward.
type BackwardFn func(gradient *tensors.Tensor)

// closureFunction implements Function with closures, see NewFunction.
type closureFunction struct {
	name     string
	forward  ForwardFn
	backward BackwardFn
	inputs   []*Variable
}

var (
	_ Function  = (*closureFunction)(nil)
	_ HasInputs = (*closureFunction)(nil)
	_ HasName   = (*closureFunction)(nil)
)

// NewFunction creates a Function out of a pair of closures. The inputs are optional, and only used for
// introspection (see HasInputs): the closures are expected to capture the inputs they need.
//
// The Function's Forward wraps the value returned by forward in a new Variable whose producer is the Function.
//
// It returns an error wrapping ErrInterfaceNotImplemented if forward or backward is nil.
func NewFunction(name string, forward ForwardFn, backward BackwardFn, inputs ...*Variable) (Function, error) {
	if forward == nil {
		return nil, errors.Wrapf(ErrInterfaceNotImplemented, "function %q has no forward implementation", name)
	}
	if backward == nil {
		return nil, errors.Wrapf(ErrInterfaceNotImplemented, "function %q has no backward implementation", name)
	}
	return &closureFunction{
		name:     name,
		forward:  forward,
		backward: backward,
		inputs:   inputs,
	}, nil
}

// Forward implements Function.
func (f *closureFunction) Forward() *Variable {
	value, requiresGradient := f.forward()
	return NewVariable(value, requiresGradient, f)
}

// Backward implements Function.
func (f *closureFunction) Backward(gradient *tensors.Tensor) {
	f.backward(gradient)
}

// Inputs implements HasInputs.
func (f *closureFunction) Inputs() []*Variable { return f.inputs }

// Name implements HasName.
func (f *closureFunction) Name() string { return f.name }
