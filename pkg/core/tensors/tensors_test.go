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
	"strconv"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/ionml/ion/pkg/core/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func cmpShapes(t *testing.T, shape, wantShape shapes.Shape, err error) {
	if err != nil {
		t.Fatalf("Failed to get shape (wanted %q) from value: %v", wantShape, err)
	}
	if !wantShape.Equal(shape) {
		t.Fatalf("Invalid shape %q, wanted %q", shape, wantShape)
	}
}

func TestShapeForValue(t *testing.T) {
	wantShape := shapes.Shape{DType: dtypes.Float32, Dimensions: []int{3, 2}}
	shape, err := shapeForValue([][]float32{{0, 0}, {1, 1}, {2, 2}})
	cmpShapes(t, shape, wantShape, err)

	wantShape = shapes.Shape{DType: dtypes.Float64, Dimensions: []int{1, 1, 1}}
	shape, err = shapeForValue([][][]float64{{{1}}})
	cmpShapes(t, shape, wantShape, err)

	if strconv.IntSize == 64 {
		wantShape = shapes.Shape{DType: dtypes.Int64}
		shape, err = shapeForValue(5)
		cmpShapes(t, shape, wantShape, err)
	}

	wantShape = shapes.Shape{DType: dtypes.Bool, Dimensions: []int{3, 2}}
	shape, err = shapeForValue([][]bool{{true, false}, {false, false}, {false, true}})
	cmpShapes(t, shape, wantShape, err)

	wantShape = shapes.Shape{DType: dtypes.Float16, Dimensions: []int{2}}
	shape, err = shapeForValue([]float16.Float16{float16.Fromfloat32(1), float16.Fromfloat32(2)})
	cmpShapes(t, shape, wantShape, err)

	// Irregular shapes and empty slices are rejected.
	_, err = shapeForValue([][]float32{{1, 2}, {3}})
	require.Error(t, err)
	_, err = shapeForValue([]float32{})
	require.Error(t, err)
	_, err = shapeForValue(&wantShape)
	require.Error(t, err)
}

func TestFromValueRoundTrip(t *testing.T) {
	value := [][]float64{{1, 2, 3}, {4, 5, 6}}
	tensor := FromValue(value)
	require.Equal(t, shapes.Make(dtypes.Float64, 2, 3), tensor.Shape())
	require.Equal(t, value, tensor.Value())
	require.Equal(t, []float64{1, 2, 3, 4, 5, 6}, CopyFlatData[float64](tensor))

	// Value returns a copy.
	got := tensor.Value().([][]float64)
	got[0][0] = 100
	require.Equal(t, 1.0, CopyFlatData[float64](tensor)[0])

	scalar := FromValue(float32(7))
	require.True(t, scalar.IsScalar())
	require.Equal(t, float32(7), scalar.Value())
	require.Equal(t, float32(7), ToScalar[float32](scalar))
	require.Panics(t, func() { _ = ToScalar[float64](scalar) })
	require.Panics(t, func() { _ = ToScalar[float64](tensor) })

	if strconv.IntSize == 64 {
		ints := FromValue([]int{1, 2, 3})
		require.Equal(t, dtypes.Int64, ints.DType())
		require.Equal(t, []int64{1, 2, 3}, ints.Value())
	}
}

func TestFromAnyValue(t *testing.T) {
	tensor := FromScalarAndDimensions(float32(1), 2)
	require.Same(t, tensor, FromAnyValue(tensor))
	require.Panics(t, func() { _ = FromAnyValue([]string{"a"}) })

	_, err := TryFromAnyValue(nil)
	require.Error(t, err)
	_, err = TryFromAnyValue((*Tensor)(nil))
	require.Error(t, err)
	_, err = TryFromAnyValue([][]int32{{1}, {2, 3}})
	require.Error(t, err)
}

func TestConstructors(t *testing.T) {
	zeros := FromShape(shapes.Make(dtypes.Float32, 4, 6))
	require.Equal(t, 24, zeros.Size())
	require.Equal(t, uintptr(24*4), zeros.Memory())
	for _, v := range CopyFlatData[float32](zeros) {
		require.Zero(t, v)
	}

	filled := FromScalarAndDimensions(2.5, 2, 2)
	require.Equal(t, [][]float64{{2.5, 2.5}, {2.5, 2.5}}, filled.Value())

	flat := FromFlatDataAndDimensions([]int32{1, 2, 3, 4, 5, 6}, 3, 2)
	require.Equal(t, [][]int32{{1, 2}, {3, 4}, {5, 6}}, flat.Value())
	require.Equal(t, []int{2, 1}, flat.LayoutStrides())
	require.Panics(t, func() { _ = FromFlatDataAndDimensions([]int32{1, 2, 3}, 2, 2) })

	require.Panics(t, func() { _ = FromShape(shapes.Invalid()) })
}

func TestMutableFlatData(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Float64, 3))
	MutableFlatData(tensor, func(flat []float64) {
		flat[1] = 7
	})
	require.Equal(t, []float64{0, 7, 0}, tensor.Value())
	require.Panics(t, func() {
		MutableFlatData(tensor, func(flat []float32) {})
	})
}

func TestCloneAndEqual(t *testing.T) {
	t0 := FromValue([][]float32{{1, 2}, {3, 4}})
	t1 := t0.Clone()
	require.True(t, t0.Equal(t1))
	require.True(t, t0.Equal(t0))

	MutableFlatData(t1, func(flat []float32) { flat[3] = 5 })
	require.False(t, t0.Equal(t1), "Clone must not share storage")
	require.Equal(t, [][]float32{{1, 2}, {3, 4}}, t0.Value())

	require.False(t, t0.Equal(FromValue([]float32{1, 2, 3, 4})))
	require.False(t, t0.Equal(FromValue([][]float64{{1, 2}, {3, 4}})))
	require.Panics(t, func() { t0.Equal(nil) })
}

func TestInDelta(t *testing.T) {
	t0 := FromValue([]float64{1, 2, 3})
	t1 := FromValue([]float64{1.001, 2, 2.999})
	assert.True(t, t0.InDelta(t1, 0.01))
	assert.False(t, t0.InDelta(t1, 0.0001))

	h0 := FromValue([]float16.Float16{float16.Fromfloat32(1), float16.Fromfloat32(2)})
	h1 := FromValue([]float16.Float16{float16.Fromfloat32(1.001), float16.Fromfloat32(2)})
	assert.True(t, h0.InDelta(h1, 0.01))

	b0 := FromValue([]bfloat16.BFloat16{bfloat16.FromFloat32(1)})
	b1 := FromValue([]bfloat16.BFloat16{bfloat16.FromFloat32(3)})
	assert.False(t, b0.InDelta(b1, 0.5))
}

func TestSummary(t *testing.T) {
	scalar := FromValue(int32(3))
	assert.Equal(t, "int32(3)", scalar.String())

	matrix := FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})
	assert.Equal(t, "[2][3]float32{{1, 2, 3},\n {4, 5, 6}}", matrix.String())

	long := FromFlatDataAndDimensions([]int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 10)
	assert.Equal(t, "[10]int32{0, 1, 2, ..., 7, 8, 9}", long.String())

	assert.Equal(t, "Tensor(invalid)", (*Tensor)(nil).String())
	assert.Equal(t, "(Float32)[2 3]: [[1 2 3] [4 5 6]]", matrix.GoStr())
	assert.Equal(t, "int32(3)", scalar.GoStr())
}
