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

package autodiff_test

import (
	"testing"

	. "github.com/ionml/ion/pkg/core/autodiff"
	"github.com/ionml/ion/pkg/core/autodiff/autodifftest"
	"github.com/ionml/ion/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDiamond builds x -> (a, b) -> sum, where sum's producer is a two-input closure Function.
func buildDiamond(t *testing.T) (x, w, a, b, sum *Variable) {
	x = Source([]float32{1, 2}).SetName("x")
	w = Parameter([]float32{3, 4}).SetName("w")
	a = Call(autodifftest.NewIdentity(x)).SetName("a")
	b = Call(autodifftest.NewIdentity(w)).SetName("b")
	add, err := NewFunction("Add",
		func() (*tensors.Tensor, bool) {
			out := a.Value().Clone()
			bFlat := tensors.CopyFlatData[float32](b.Value())
			tensors.MutableFlatData(out, func(flat []float32) {
				for ii := range flat {
					flat[ii] += bFlat[ii]
				}
			})
			return out, a.RequiresGradient() || b.RequiresGradient()
		},
		func(gradient *tensors.Tensor) {
			a.Backward(gradient)
			b.Backward(gradient)
		},
		a, b, a)
	require.NoError(t, err)
	sum = Call(add).SetName("sum")
	return
}

func TestReachableAndSources(t *testing.T) {
	x, w, a, b, sum := buildDiamond(t)
	require.Equal(t, []*Variable{sum, a, b, x, w}, Reachable(sum))
	require.Equal(t, []*Variable{x, w}, Sources(sum))
	require.Equal(t, []*Variable{x}, Sources(x))
	require.Nil(t, Reachable(nil))

	// Producers without HasInputs stop the walk.
	opaque := Call(&autodifftest.Recorder{})
	require.Equal(t, []*Variable{opaque}, Reachable(opaque))
	require.Empty(t, Sources(opaque))
}

func TestSummary(t *testing.T) {
	x, w, _, _, sum := buildDiamond(t)
	sum.Backward(tensors.FromValue([]float32{1, 1}))
	require.Nil(t, x.Gradient())
	require.NotNil(t, w.Gradient())

	summary := Summary(sum)
	for _, want := range []string{"sum", "Add", "Identity", "(source)", "(Float32)[2]", "8 B",
		"5 variables (2 sources), 40 B in values"} {
		assert.Contains(t, summary, want)
	}
}
