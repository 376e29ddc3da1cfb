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

package shapes

import (
	"testing"

	. "github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())

	shape0 := Make(Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Len(t, shape0.Dimensions, 0)
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))
	require.Equal(t, "(Float64)", shape0.String())

	shape1 := Make(Float32, 4, 3, 2)
	require.True(t, shape1.Ok())
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Len(t, shape1.Dimensions, 3)
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())

	require.Equal(t, Float32, Scalar[float32]().DType)
	require.Panics(t, func() { _ = Make(Float32, 2, -1) })
	require.True(t, Make(Float32, 2, 0).IsZeroSize())
}

func TestDim(t *testing.T) {
	shape := Make(Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 3, shape.Dim(1))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 3, shape.Dim(-2))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestEqualAndClone(t *testing.T) {
	s := Make(Float64, 4, 6)
	s2 := s.Clone()
	require.True(t, s.Equal(s2))
	s2.Dimensions[0] = 5
	require.Equal(t, 4, s.Dimensions[0], "Clone must not share dimensions")
	require.False(t, s.Equal(s2))

	s3 := Make(Float32, 4, 6)
	require.False(t, s.Equal(s3))
	require.True(t, s.EqualDimensions(s3))
}

func TestChecks(t *testing.T) {
	s := Make(Float32, 4, 6)
	require.NoError(t, s.CheckDims(4, 6))
	require.NoError(t, s.CheckDims(UncheckedAxis, 6))
	require.Error(t, s.CheckDims(4, 5))
	require.Error(t, s.CheckDims(4))
	require.NoError(t, s.Check(Float32, 4, -1))
	require.Error(t, s.Check(Float64, 4, 6))
	require.NoError(t, CheckSame(s, Make(Float32, 4, 6)))
	require.Error(t, CheckSame(s, Make(Float32, 6, 4)))
	require.Panics(t, func() { s.AssertDims(1, 1) })
	require.NotPanics(t, func() { AssertDims(s, 4, 6) })
}
