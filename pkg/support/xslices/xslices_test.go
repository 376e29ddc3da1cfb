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

package xslices

import (
	"flag"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	count := 17
	in := make([]int, count)
	for ii := range in {
		in[ii] = ii
	}
	out := Map(in, func(v int) int32 { return int32(v + 1) })
	for ii := 0; ii < count; ii++ {
		assert.Equalf(t, int32(ii+1), out[ii], "element %d doesn't match", ii)
	}
}

func TestFillAndCopy(t *testing.T) {
	s := make([]float32, 7)
	FillSlice(s, 3)
	assert.Equal(t, []float32{3, 3, 3, 3, 3, 3, 3}, s)
	c := Copy(s)
	c[0] = 1
	assert.Equal(t, float32(3), s[0])
	assert.Nil(t, Copy([]int{}))
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"c": 3, "a": 1, "b": 2}
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(m))
	assert.Equal(t, []int{-1, 3, 10}, SortedKeys(map[int]bool{10: true, -1: false, 3: true}))
	assert.Empty(t, SortedKeys(map[string]int{}))
}

func TestSlicesInDelta(t *testing.T) {
	assert.True(t, SlicesInDelta([][]float64{{1, 2}}, [][]float64{{1.001, 2}}, 0.01))
	assert.False(t, SlicesInDelta([][]float64{{1, 2}}, [][]float64{{1.1, 2}}, 0.01))
	assert.False(t, SlicesInDelta([]float64{1, 2}, []float64{1, 2, 3}, 0.01))
	assert.False(t, SlicesInDelta([]float32{1}, []float64{1}, 0.01))
	assert.True(t, SlicesInDelta([]int32{1, 2}, []int32{1, 2}, 0))
}

type StringerFloat float64

func (f StringerFloat) String() string {
	return fmt.Sprintf("%.02f", float64(f))
}

func TestSliceFlag(t *testing.T) {
	f1Ptr := Flag("f1", []int{2, 3}, "f1 flag test", strconv.Atoi)
	assert.Equal(t, []int{2, 3}, *f1Ptr)
	require.NoError(t, flag.Set("f1", "3, 4,5"))
	assert.Equal(t, []int{3, 4, 5}, *f1Ptr)
	f1Flag := flag.Lookup("f1")
	require.NotNil(t, f1Flag)
	assert.Equal(t, "2,3", f1Flag.DefValue)

	f2Ptr := Flag("f2", []StringerFloat{2.0, 3.0}, "f2 flag test",
		func(v string) (StringerFloat, error) {
			f, err := strconv.ParseFloat(v, 64)
			return StringerFloat(f), err
		})
	assert.Equal(t, []StringerFloat{2, 3}, *f2Ptr)
	require.NoError(t, flag.Set("f2", "3,4,5"))
	assert.Equal(t, []StringerFloat{3, 4, 5}, *f2Ptr)
	f2Flag := flag.Lookup("f2")
	require.NotNil(t, f2Flag)
	assert.Equal(t, "2.00,3.00", f2Flag.DefValue)
}
