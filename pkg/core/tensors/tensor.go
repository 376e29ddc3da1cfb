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

// Package tensors implements a `Tensor`, a representation of a multi-dimensional array held in host memory.
//
// Tensors are multidimensional arrays (from scalar with 0 dimensions, to arbitrarily large dimensions), defined
// by their shape (a data type and its axes dimensions) and their actual content, stored as a flat slice of the
// Go type corresponding to the DType.
//
// Tensors are the values wrapped by the automatic differentiation nodes (see package autodiff): both the value
// of a node and its gradient are tensors.
//
// There are various ways to construct a Tensor:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int): creates a Tensor with the
//     given dimensions, filled with the scalar value given.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions, and set the flattened values with the given data. Example:
//
//     t := FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 2, 2}) // Tensor with [[1,2], [3,4]]
//
//   - FromValue[S MultiDimensionSlice](value S): Generic conversion, works with the scalar supported `DType`s
//     as well as with any arbitrary multidimensional slice of them. Slices of rank > 1 must be regular, that is
//     all the sub-slices must have the same shape. Example:
//
//     t := FromValue([][]float{{1,2}, {3, 5}, {7, 11}})`
//
//   - FromAnyValue(value any): same as FromValue but non-generic, it takes an anonymous type `any`. The exception
//     is if `value` is already a tensor, then it is a no-op and it returns the tensor itself.
package tensors

import (
	"reflect"
	"sync"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/ionml/ion/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Tensor represents a multidimensional arrays (from scalar with 0 dimensions, to arbitrarily large dimensions), defined
// by their shape, a data type (dtypes.DType) and its axes' dimensions, and their actual content stored as a flat (1D)
// array of values.
//
// The shape is immutable. The contents are only changed through MutableFlatData, and by convention values
// wrapped by an autodiff node are never mutated.
type Tensor struct {
	// shape of the tensor.
	shape shapes.Shape

	// mu protects flat, but not the shape, which is considered immutable.
	mu sync.Mutex

	// flat holds the array with actual data: a slice of the Go type for the dtype of the shape.
	flat any
}

// newTensor returns a Tensor object initialized only with the shape, but no actual storage.
func newTensor(shape shapes.Shape) *Tensor {
	return &Tensor{shape: shape}
}

// Shape of the tensor, includes DType.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the DType of the tensor's shape.
// It is a shortcut to `Tensor.Shape().DType`.
func (t *Tensor) DType() dtypes.DType {
	return t.shape.DType
}

// Rank returns the rank of the tensor's shape.
// It is a shortcut to `Tensor.Shape().Rank()`.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor represents a scalar value.
// It is a shortcut to `Tensor.Shape().IsScalar()`.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements in the tensor.
// It is a shortcut to `Tensor.Shape().Size()`.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the number of bytes used to store the tensor. An alias to Tensor.Shape().Memory().
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Ok returns whether the Tensor is in a valid state: it is not nil, and it has storage for its values.
func (t *Tensor) Ok() bool {
	return t != nil && t.shape.Ok() && t.flat != nil
}

// AssertValid panics if the tensor is nil, or if its shape is invalid.
func (t *Tensor) AssertValid() {
	if t == nil {
		panic(errors.New("Tensor is nil"))
	}
	if !t.shape.Ok() {
		panic(errors.New("Tensor shape is invalid"))
	}
	if t.flat == nil {
		panic(errors.Errorf("Tensor %s has no storage", t.shape))
	}
}

// Clone creates a deep copy of the Tensor: the returned tensor shares no storage with t.
func (t *Tensor) Clone() *Tensor {
	var clone *Tensor
	t.ConstFlatData(func(flat any) {
		clone = newTensor(t.shape.Clone())
		flatV := reflect.ValueOf(flat)
		size := flatV.Len()
		cloneFlatV := reflect.MakeSlice(flatV.Type(), size, size)
		reflect.Copy(cloneFlatV, flatV)
		clone.flat = cloneFlatV.Interface()
	})
	return clone
}

// LayoutStrides return the strides for each axis. This can be handy when manipulating the flat data.
func (t *Tensor) LayoutStrides() (strides []int) {
	return layoutStrides(t.shape.Dimensions)
}

func layoutStrides(dimensions []int) (strides []int) {
	rank := len(dimensions)
	if rank == 0 {
		return
	}
	strides = make([]int, rank)
	currentStride := 1
	for dim := rank - 1; dim >= 0; dim-- {
		strides[dim] = currentStride
		currentStride *= dimensions[dim]
	}
	return
}
