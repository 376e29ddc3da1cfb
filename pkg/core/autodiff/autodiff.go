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

// Package autodiff implements the nodes of a dynamically built computation graph and the reverse-mode
// gradient propagation protocol ("backward pass") that connects them.
//
// The graph is bipartite:
//
//   - Variable (data node): holds a tensor value, an optional gradient and a back-reference to the Function
//     that produced it. A Variable without producer is a "source" (model parameters, input data).
//   - Function (operation node): an interface with Forward, which creates a new Variable whose producer is the
//     Function itself, and Backward, which routes an incoming gradient to the Function's input Variables by
//     calling their Backward method.
//
// Concrete operations live outside this package: they implement Function, keep references to their input
// Variables and supply their own derivative rules. Example of a pass-through operation:
//
//	type Identity struct{ input *autodiff.Variable }
//
//	var _ autodiff.Function = (*Identity)(nil)
//
//	func (op *Identity) Forward() *autodiff.Variable {
//		return autodiff.NewVariable(op.input.Value().Clone(), op.input.RequiresGradient(), op)
//	}
//
//	func (op *Identity) Backward(gradient *tensors.Tensor) { op.input.Backward(gradient) }
//
// Calling Variable.Backward on the output stores the gradient on every node that requires it and walks the
// producer links back until the source nodes are reached:
//
//	x := autodiff.Parameter([][]float64{{1, 2}, {3, 4}})
//	y := autodiff.Call(&Identity{input: x})
//	y.Backward(tensors.FromValue([][]float64{{1, 1}, {1, 1}}))
//	fmt.Println(x.Gradient())
//
// Gradients are overwritten, never summed: each Variable keeps the last gradient that reached it. A node that
// feeds more than one downstream operation receives one Backward call per path, and if accumulation is wanted it
// is the responsibility of the concrete operations.
//
// The package performs no locking: a graph must not be traversed concurrently.
package autodiff

import (
	"github.com/pkg/errors"
)

var (
	// ErrInterfaceNotImplemented is returned when a value that should be a Function doesn't provide
	// usable Forward and Backward methods.
	ErrInterfaceNotImplemented = errors.New("autodiff.Function interface not implemented")

	// ErrShapeMismatch is returned by Variable.CheckedBackward when the gradient shape (dtype and dimensions)
	// differs from the shape of the variable's value.
	ErrShapeMismatch = errors.New("gradient shape mismatch")
)

// traced is set with SetTraced.
var traced bool

// SetTraced configures whether new Variables record the stack-trace of where they were created.
// It's useful to debug failures during the backward pass, see Variable.Trace and Variable.CheckedBackward.
//
// It should be set before the graph is built, and not changed concurrently with graph building.
func SetTraced(value bool) {
	traced = value
}

// IsTraced returns whether new Variables record the stack-trace of where they were created. See SetTraced.
func IsTraced() bool {
	return traced
}
