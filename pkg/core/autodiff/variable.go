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
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"github.com/ionml/ion/pkg/core/shapes"
	"github.com/ionml/ion/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Variable is the data node of the graph: it wraps a tensor value, an optional gradient, and a back-reference
// to the Function that produced it (nil for source nodes).
type Variable struct {
	value            *tensors.Tensor
	requiresGradient bool
	gradient         *tensors.Tensor

	// producer is the operation whose Forward created this Variable. It is nil for sources.
	producer Function

	id    uuid.UUID
	name  string
	trace error // Stack-trace of where the Variable was created, only if IsTraced().
}

// NewVariable creates a Variable wrapping value, which can be a *tensors.Tensor or anything accepted by
// tensors.FromAnyValue (a scalar or a regular multi-dimensional slice).
//
// A *tensors.Tensor is cloned, so the Variable owns its value exclusively and later changes to the given
// tensor don't affect it. Other values are converted to a new tensor, without loss.
//
// requiresGradient controls whether Backward stores the incoming gradient on this node.
// producer is the Function that created the Variable, or nil for a source. Its consistency is not validated.
//
// It panics if value cannot be converted to a tensor.
func NewVariable(value any, requiresGradient bool, producer Function) *Variable {
	t, err := tensors.TryFromAnyValue(value)
	if err != nil {
		panic(errors.WithMessage(err, "autodiff.NewVariable"))
	}
	if given, ok := value.(*tensors.Tensor); ok {
		if !given.Ok() {
			panic(errors.Errorf("autodiff.NewVariable: invalid tensor given"))
		}
		t = given.Clone()
	}
	v := &Variable{
		value:            t,
		requiresGradient: requiresGradient,
		producer:         producer,
		id:               uuid.New(),
	}
	if traced {
		v.trace = errors.New("Variable created")
	}
	return v
}

// Source creates a source Variable (no producer) that doesn't require a gradient, typically input data.
func Source(value any) *Variable {
	return NewVariable(value, false, nil)
}

// Parameter creates a source Variable that requires a gradient, typically a model weight.
func Parameter(value any) *Variable {
	return NewVariable(value, true, nil)
}

// Value returns the tensor wrapped by the Variable. It should not be modified.
func (v *Variable) Value() *tensors.Tensor { return v.value }

// RequiresGradient returns whether Backward stores the gradient in this Variable.
func (v *Variable) RequiresGradient() bool { return v.requiresGradient }

// Gradient returns the last gradient stored by Backward, or nil if none was stored yet.
func (v *Variable) Gradient() *tensors.Tensor { return v.gradient }

// ClearGradient resets the gradient to nil, as it was before any Backward call.
func (v *Variable) ClearGradient() { v.gradient = nil }

// Producer returns the Function that created the Variable, or nil if it is a source.
func (v *Variable) Producer() Function { return v.producer }

// SetProducer re-links the Variable to the given producer. Setting it to nil turns the Variable into a source.
//
// Normally the producer is set at construction by the Function's Forward. This is used by tools and tests
// that need to splice operations (or mocks of them) into an existing graph.
func (v *Variable) SetProducer(producer Function) { v.producer = producer }

// IsSource returns whether the Variable has no producer: it is a leaf of the graph, with no incoming edge.
func (v *Variable) IsSource() bool { return v.producer == nil }

// Shape returns the shape of the wrapped value. It implements shapes.HasShape.
func (v *Variable) Shape() shapes.Shape { return v.value.Shape() }

// ID uniquely identifies the Variable.
func (v *Variable) ID() uuid.UUID { return v.id }

// Name of the Variable: the one set with SetName, or one derived from its ID.
func (v *Variable) Name() string {
	if v.name != "" {
		return v.name
	}
	return "var-" + v.id.String()[:8]
}

// SetName sets a name to the Variable, used when printing and by Summary. It returns the Variable itself,
// so it can be cascaded.
func (v *Variable) SetName(name string) *Variable {
	v.name = name
	return v
}

// Trace returns stack-trace in form of an error, of when the Variable was created.
// Only available if enabled by SetTraced(true), otherwise it returns nil.
func (v *Variable) Trace() error { return v.trace }

// String implements fmt.Stringer.
func (v *Variable) String() string {
	if v == nil {
		return "Variable(nil)"
	}
	kind := "intermediate"
	if v.IsSource() {
		kind = "source"
	}
	str := fmt.Sprintf("Variable(%s: %s, %s", v.Name(), v.value.Shape(), kind)
	if v.requiresGradient {
		str += ", requires gradient"
	}
	return str + ")"
}

// Backward propagates the gradient of some downstream value (typically a scalar loss) with respect to this
// Variable:
//
//  1. If the Variable requires a gradient, gradient is stored, replacing any previous one -- gradients
//     are never summed.
//  2. If the Variable is not a source, the gradient is passed unchanged to the producer's Backward,
//     exactly once.
//
// No shape verification is done, see CheckedBackward for that. Failures in the producers (panics) are not
// recovered and reach the caller.
func (v *Variable) Backward(gradient *tensors.Tensor) {
	if v.requiresGradient {
		v.gradient = gradient
	}
	if v.IsSource() {
		return
	}
	if klog.V(2).Enabled() {
		klog.Infof("autodiff: %s delegates gradient to %s", v, FunctionTypeName(v.producer))
	}
	v.producer.Backward(gradient)
}

// CheckedBackward is a defensive version of Backward: it returns an error wrapping ErrShapeMismatch if
// the gradient is nil or if its shape differs from the Variable's shape, and otherwise it calls Backward,
// converting any panic raised during the propagation into an error.
// The gradients stored before the failure are kept.
//
// Only the gradient given to this Variable is checked: gradients computed by the Functions down the graph
// are propagated as in Backward.
func (v *Variable) CheckedBackward(gradient *tensors.Tensor) (err error) {
	if gradient == nil {
		return errors.Wrapf(ErrShapeMismatch, "nil gradient given to %s", v)
	}
	if !gradient.Ok() {
		return errors.Wrapf(ErrShapeMismatch, "invalid gradient tensor given to %s", v)
	}
	if err := shapes.CheckSame(gradient, v); err != nil {
		return errors.Wrapf(ErrShapeMismatch, "gradient given to %s: %v", v, err)
	}
	exception := exceptions.Try(func() { v.Backward(gradient) })
	if exception != nil {
		var ok bool
		if err, ok = exception.(error); !ok {
			err = errors.Errorf("%v", exception)
		}
		err = errors.WithMessagef(err, "backward pass from %s failed", v)
		if v.trace != nil {
			err = errors.WithMessagef(err, "variable created at: %+v\n", v.trace)
		}
	}
	return
}
