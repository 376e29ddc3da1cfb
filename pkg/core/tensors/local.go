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

package tensors

import (
	"fmt"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/ionml/ion/pkg/core/shapes"
	"github.com/ionml/ion/pkg/support/xslices"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
func FromShape(shape shapes.Shape) (t *Tensor) {
	if !shape.Ok() {
		panic(errors.New("invalid shape"))
	}
	goType := shape.DType.GoType()
	if goType == nil {
		exceptions.Panicf("tensors.FromShape(%s): dtype has no Go equivalent", shape)
	}
	t = newTensor(shape.Clone())
	size := shape.Size()
	t.flat = reflect.MakeSlice(reflect.SliceOf(goType), size, size).Interface()
	return
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// Even scalar values have a flattened data representation of one element.
// It locks the Tensor until accessFn returns.
//
// This provides accessFn with the actual Tensor data (not a copy), and it's owned by the Tensor, but it should not be
// changed. See Tensor.MutableFlatData to access a mutable version of the flat data.
//
// It panics if the tensor is in an invalid state.
func (t *Tensor) ConstFlatData(accessFn func(flat any)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.AssertValid()
	accessFn(t.flat)
}

// ConstFlatData is the "generics" version of Tensor.ConstFlatData().
//
// It panics if the generic type doesn't match the tensor's Go storage type. Notice that the storage for
// dtypes.Int64 is always []int64, even if the tensor was created from Go `int` values.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	t.ConstFlatData(func(anyFlat any) {
		flat, ok := anyFlat.([]T)
		if !ok {
			var v T
			exceptions.Panicf("ConstFlatData[%T] is incompatible with Tensor's dtype %s (storage is %T)",
				v, t.shape.DType, anyFlat)
		}
		accessFn(flat)
	})
}

// MutableFlatData calls accessFn with a flat slice pointing to the Tensor data. The type of the slice is corresponds
// to the DType of the tensor. The contents of the slice itself can be changed until accessFn returns.
// During this time the Tensor is locked.
func (t *Tensor) MutableFlatData(accessFn func(flat any)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.AssertValid()
	accessFn(t.flat)
}

// MutableFlatData is the "generics" version of Tensor.MutableFlatData().
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	t.MutableFlatData(func(anyFlat any) {
		flat, ok := anyFlat.([]T)
		if !ok {
			var v T
			exceptions.Panicf("MutableFlatData[%T] is incompatible with Tensor's dtype %s (storage is %T)",
				v, t.shape.DType, anyFlat)
		}
		accessFn(flat)
	})
}

// CopyFlatData returns a copy of the flat data of the Tensor.
//
// It will panic if the given generic type doesn't match the DType of the tensor.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	var flatCopy []T
	ConstFlatData(t, func(flat []T) {
		flatCopy = xslices.Copy(flat)
	})
	return flatCopy
}

// ToScalar returns the scalar value of the Tensor.
//
// It will panic if the given generic type doesn't match the DType of the tensor, or if the tensor is not a scalar.
func ToScalar[T dtypes.Supported](t *Tensor) (value T) {
	if !t.shape.IsScalar() {
		exceptions.Panicf("ToScalar[%T] requires scalar Tensor, got shape %s instead", value, t.shape)
	}
	ConstFlatData(t, func(flat []T) {
		value = flat[0]
	})
	return
}

// FromScalar creates a local tensor with the given scalar.
// The `DType` is inferred from the value.
func FromScalar[T dtypes.Supported](value T) (t *Tensor) {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a local tensor with the given dimensions, filled with the
// given scalar value replicated everywhere.
// The `DType` is inferred from the value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) (t *Tensor) {
	dtype := dtypes.FromGenericsType[T]()
	t = FromShape(shapes.Make(dtype, dimensions...))
	t.MutableFlatData(func(flat any) {
		xslices.FillSlice(flat.([]T), value)
	})
	return
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor.
// The `DType` is inferred from the `data` type.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) (t *Tensor) {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d", shape, len(data), shape.Size())
	}
	t = FromShape(shape)
	t.MutableFlatData(func(flat any) {
		copyFlat(reflect.ValueOf(flat), reflect.ValueOf(data))
	})
	return
}

// copyFlat copies src into dst. They have the same length, and either the same type or convertible
// element types, which happens for Go `int` values stored as int64 (or int32).
func copyFlat(dst, src reflect.Value) {
	if dst.Type() == src.Type() {
		reflect.Copy(dst, src)
		return
	}
	elemType := dst.Type().Elem()
	for ii := range src.Len() {
		dst.Index(ii).Set(src.Index(ii).Convert(elemType))
	}
}

// MultiDimensionSlice lists the Go types a Tensor can be converted to/from. There are no recursions in
// generics' constraint definitions, so we enumerate up to 6 levels of slices. Feel free to add
// more if needed, the implementation will work with any arbitrary number.
type MultiDimensionSlice interface {
	bool | float32 | float64 | int | int32 | int64 | uint8 | uint32 | uint64 | complex64 | complex128 | float16.Float16 | bfloat16.BFloat16 |
		[]bool | []float32 | []float64 | []int | []int32 | []int64 | []uint8 | []uint32 | []uint64 | []complex64 | []complex128 | []float16.Float16 | []bfloat16.BFloat16 |
		[][]bool | [][]float32 | [][]float64 | [][]int | [][]int32 | [][]int64 | [][]uint8 | [][]uint32 | [][]uint64 | [][]complex64 | [][]complex128 | [][]float16.Float16 | [][]bfloat16.BFloat16 |
		[][][]bool | [][][]float32 | [][][]float64 | [][][]int | [][][]int32 | [][][]int64 | [][][]uint8 | [][][]uint32 | [][][]uint64 | [][][]complex64 | [][][]complex128 |
		[][][][]bool | [][][][]float32 | [][][][]float64 | [][][][]int | [][][][]int32 | [][][][]int64 | [][][][]uint8 | [][][][]uint32 | [][][][]uint64 | [][][][]complex64 | [][][][]complex128 |
		[][][][][]bool | [][][][][]float32 | [][][][][]float64 | [][][][][]int | [][][][][]int32 | [][][][][]int64 | [][][][][]uint8 | [][][][][]uint32 | [][][][][]uint64 | [][][][][]complex64 | [][][][][]complex128
}

// FromValue returns a Tensor constructed from the given multi-dimension slice (or scalar).
// If the rank of the `value` is larger than 1, the shape of all sub-slices must be the same.
//
// It panics if the shape is not regular.
//
// Notice that FromFlatDataAndDimensions is much faster if speed here is a concern.
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is a non-generic version of FromValue.
// The input is expected to be either a scalar or a slice of slices with homogeneous dimensions.
// If the input is a tensor already, it is simply returned.
//
// It panics with an error if `value` type is unsupported or the shape is not regular.
// See TryFromAnyValue for a version that returns the error instead.
func FromAnyValue(value any) (t *Tensor) {
	t, err := TryFromAnyValue(value)
	if err != nil {
		panic(err)
	}
	return t
}

// TryFromAnyValue is like FromAnyValue, but returns an error if the value cannot be converted.
func TryFromAnyValue(value any) (t *Tensor, err error) {
	if valueT, ok := value.(*Tensor); ok {
		// Input is already a Tensor.
		if valueT == nil {
			return nil, errors.New("cannot convert a nil *Tensor")
		}
		return valueT, nil
	}
	if value == nil {
		return nil, errors.New("cannot create a Tensor from a nil value")
	}
	shape, err := shapeForValue(value)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create shape from %T", value)
	}
	t = FromShape(shape)
	t.MutableFlatData(func(flatAny any) {
		flatV := reflect.ValueOf(flatAny)
		if shape.IsScalar() {
			flatV.Index(0).Set(reflect.ValueOf(value).Convert(flatV.Type().Elem()))
			return
		}
		// Copy over multi-dimensional slice recursively.
		copySlicesRecursively(flatV, reflect.ValueOf(value), t.LayoutStrides())
	})
	return t, nil
}

// copySlicesRecursively copy values on a multi-dimension slice to a flat data slice
// assuming the strides for each dimension.
func copySlicesRecursively(data reflect.Value, mdSlice reflect.Value, strides []int) {
	if len(strides) == 1 {
		// Last level of slice, just copy over the slice.
		copyFlat(data, mdSlice)
		return
	}

	numElements := mdSlice.Len()
	subStrides := strides[1:]
	for ii := 0; ii < numElements; ii++ {
		start := ii * strides[0]
		end := (ii + 1) * strides[0]
		subData := data.Slice(start, end)
		copySlicesRecursively(subData, mdSlice.Index(ii), subStrides)
	}
}

func shapeForValue(v any) (shape shapes.Shape, err error) {
	err = shapeForValueRecursive(&shape, reflect.ValueOf(v), reflect.TypeOf(v))
	return
}

func shapeForValueRecursive(shape *shapes.Shape, v reflect.Value, t reflect.Type) error {
	switch t.Kind() {
	case reflect.Slice:
		// Recurse into inner slices.
		t = t.Elem()
		shape.Dimensions = append(shape.Dimensions, v.Len())
		shapePrefix := shape.Clone()

		// The first element is the reference
		if v.Len() == 0 {
			return errors.Errorf("value with empty slice not valid for Tensor conversion: %T: %v -- it's impossible "+
				"to represent tensors with zero-dimensions generically using Go slices, use FromShape instead", v.Interface(), v)
		}
		err := shapeForValueRecursive(shape, v.Index(0), t)
		if err != nil {
			return err
		}

		// Test that other elements have the same shape as the first one.
		for ii := 1; ii < v.Len(); ii++ {
			shapeTest := shapePrefix.Clone()
			err = shapeForValueRecursive(&shapeTest, v.Index(ii), t)
			if err != nil {
				return err
			}
			if !shape.Equal(shapeTest) {
				return fmt.Errorf("sub-slices have irregular shapes, found shapes %q, and %q", shape, shapeTest)
			}
		}
	case reflect.Pointer:
		return fmt.Errorf("cannot convert Pointer (%s) to a concrete value for tensors", t)
	default:
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return fmt.Errorf("cannot convert type %s to a value concrete tensor type (maybe type not supported yet?)", t)
		}
	}
	return nil
}

// Value returns a multidimensional slice (except if shape is a scalar) containing a copy of the values stored
// in the tensor.
// This is expensive, and usually only used for smaller tensors in tests and to print results.
func (t *Tensor) Value() any {
	var mdSlice any
	t.ConstFlatData(func(flat any) {
		if t.shape.IsScalar() {
			mdSlice = reflect.ValueOf(flat).Index(0).Interface()
			return
		}

		// Create a copy of the flat slice with all data.
		flatV := reflect.ValueOf(flat)
		flatCopyV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
		reflect.Copy(flatCopyV, flatV)
		mdSlice = convertDataToSlices(flatCopyV, t.shape.Dimensions...).Interface()
	})
	return mdSlice
}

// convertDataToSlices takes data as a flat slice, and creates a multidimensional slices with the given dimensions that
// points to the given data.
func convertDataToSlices(dataV reflect.Value, dimensions ...int) reflect.Value {
	if len(dimensions) <= 1 {
		return dataV
	}
	resultT := dataV.Type().Elem()
	for range dimensions {
		resultT = reflect.SliceOf(resultT)
	}
	return createSlicesRecursively(resultT, dataV, dimensions, layoutStrides(dimensions))
}

// createSlicesRecursively recursively creates the slices pointing to the flat data.
func createSlicesRecursively(resultT reflect.Type, data reflect.Value, dimensions []int, strides []int) reflect.Value {
	if len(strides) == 1 {
		// Last level of slice, just copy over the slice (not the data, just the slice).
		return data
	}

	numElements := dimensions[0]
	slice := reflect.MakeSlice(resultT, numElements, numElements)
	subStrides := strides[1:]
	subDimensions := dimensions[1:]
	subResultT := resultT.Elem()
	for ii := 0; ii < numElements; ii++ {
		start := ii * strides[0]
		end := (ii + 1) * strides[0]
		subSlice := createSlicesRecursively(subResultT, data.Slice(start, end), subDimensions, subStrides)
		slice.Index(ii).Set(subSlice)
	}
	return slice
}

// Equal checks weather t == otherTensor, element-wise and exactly.
// If they are the same pointer they are considered equal.
// If the shapes are different it returns false.
// If either are invalid (nil) it panics.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	t.AssertValid()
	otherTensor.AssertValid()

	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	equal := true
	t.ConstFlatData(func(flat0 any) {
		otherTensor.ConstFlatData(func(flat1 any) {
			t0V := reflect.ValueOf(flat0)
			t1V := reflect.ValueOf(flat1)
			for ii := range t0V.Len() {
				if !t0V.Index(ii).Equal(t1V.Index(ii)) {
					equal = false
					return
				}
			}
		})
	})
	return equal
}

// InDelta checks weather Abs(t - otherTensor) < delta for every element.
// If they are the same pointer they are considered equal.
// If the shapes are different it returns false.
// If either are invalid (nil) it panics.
func (t *Tensor) InDelta(otherTensor *Tensor, delta float64) bool {
	t.AssertValid()
	otherTensor.AssertValid()

	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	if t.shape.IsZeroSize() {
		return true
	}

	inDelta := true
	t.ConstFlatData(func(flat0 any) {
		otherTensor.ConstFlatData(func(flat1 any) {
			inDelta = xslices.SlicesInDelta(halfToFloat32(flat0), halfToFloat32(flat1), delta)
		})
	})
	return inDelta
}

// halfToFloat32 converts float16 and bfloat16 flat slices to float32, so they can be numerically compared.
// Other slices are returned as is.
func halfToFloat32(flat any) any {
	switch typed := flat.(type) {
	case []float16.Float16:
		return xslices.Map(typed, func(v float16.Float16) float32 { return v.Float32() })
	case []bfloat16.BFloat16:
		return xslices.Map(typed, func(v bfloat16.BFloat16) float32 { return v.Float32() })
	}
	return flat
}
