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

// Package autodifftest provides stub operations to test and exercise the autodiff backward protocol:
// pass-through operations, to build chains of arbitrary depth, and recording mocks.
package autodifftest

import (
	"math/rand/v2"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/ionml/ion/pkg/core/autodiff"
	"github.com/ionml/ion/pkg/core/shapes"
	"github.com/ionml/ion/pkg/core/tensors"
)

// Identity is an operation with one input, whose output is a copy of the input and whose backward step passes
// the gradient unchanged to the input.
type Identity struct {
	Input *autodiff.Variable

	// BackwardCalls counts the number of times Backward was called.
	BackwardCalls int
}

var (
	_ autodiff.Function  = (*Identity)(nil)
	_ autodiff.HasInputs = (*Identity)(nil)
)

func init() {
	autodiff.MustRegisterFunctionType("Identity", (*Identity)(nil))
}

// NewIdentity returns an Identity operation over input.
func NewIdentity(input *autodiff.Variable) *Identity {
	return &Identity{Input: input}
}

// Forward implements autodiff.Function. The output requires a gradient if the input does.
func (op *Identity) Forward() *autodiff.Variable {
	return autodiff.NewVariable(op.Input.Value(), op.Input.RequiresGradient(), op)
}

// Backward implements autodiff.Function.
func (op *Identity) Backward(gradient *tensors.Tensor) {
	op.BackwardCalls++
	op.Input.Backward(gradient)
}

// Inputs implements autodiff.HasInputs.
func (op *Identity) Inputs() []*autodiff.Variable {
	return []*autodiff.Variable{op.Input}
}

// BuildChain applies depth Identity operations in sequence starting from source, and returns the final
// output and the operations, from the closest to the source to the closest to the output.
//
// If progress is not nil, it is called after each operation is added.
func BuildChain(source *autodiff.Variable, depth int, progress func()) (output *autodiff.Variable, ops []*Identity) {
	ops = make([]*Identity, 0, depth)
	output = source
	for range depth {
		op := NewIdentity(output)
		output = autodiff.Call(op)
		ops = append(ops, op)
		if progress != nil {
			progress()
		}
	}
	return
}

// Recorder is a mock operation: it records every gradient given to Backward, and doesn't propagate it further.
type Recorder struct {
	// Value returned, wrapped in a new Variable, by Forward. If nil, a float64 scalar 0 is used.
	Value *tensors.Tensor

	// RequiresGradient of the Variables created by Forward.
	RequiresGradient bool

	// ForwardCalls counts the number of times Forward was called.
	ForwardCalls int

	// Gradients received by Backward, in order.
	Gradients []*tensors.Tensor
}

var _ autodiff.Function = (*Recorder)(nil)

// Forward implements autodiff.Function.
func (r *Recorder) Forward() *autodiff.Variable {
	r.ForwardCalls++
	value := r.Value
	if value == nil {
		value = tensors.FromScalar(0.0)
	} else {
		value = value.Clone()
	}
	return autodiff.NewVariable(value, r.RequiresGradient, r)
}

// Backward implements autodiff.Function.
func (r *Recorder) Backward(gradient *tensors.Tensor) {
	r.Gradients = append(r.Gradients, gradient)
}

// BackwardCalls returns the number of times Backward was called.
func (r *Recorder) BackwardCalls() int {
	return len(r.Gradients)
}

// RandomTensor returns a float64 tensor with the given dimensions filled with normally distributed values.
func RandomTensor(rng *rand.Rand, dimensions ...int) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Float64, dimensions...))
	tensors.MutableFlatData(t, func(flat []float64) {
		for ii := range flat {
			flat[ii] = rng.NormFloat64()
		}
	})
	return t
}
