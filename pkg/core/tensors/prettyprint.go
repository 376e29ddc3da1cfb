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
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

var (
	typeFloat16  = reflect.TypeOf(float16.Float16(0))
	typeBFloat16 = reflect.TypeOf(bfloat16.BFloat16(0))
)

// MaxElementsPerRow is the number of elements of the innermost axis printed by Summary before
// it starts using ellipsis. The same limit applies to the rows of the outer axes.
var MaxElementsPerRow = 6

// String converts to string, using t.Summary(precision=4).
func (t *Tensor) String() string {
	if !t.Ok() {
		return "Tensor(invalid)"
	}
	return t.Summary(4)
}

// Summary returns a multi-line summary of the Tensor's content.
// Inspired by numpy output.
func (t *Tensor) Summary(precision int) string {
	if t.Shape().IsZeroSize() {
		return t.Shape().String()
	}

	// Easy string building.
	var buf bytes.Buffer
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&buf, format, args...) }

	// Print value with appropriate formatting:
	wValue := func(v reflect.Value) {
		if v.Type() == typeFloat16 {
			w("%.*g", precision, v.Interface().(float16.Float16).Float32())
			return
		} else if v.Type() == typeBFloat16 {
			w("%.*g", precision, v.Interface().(bfloat16.BFloat16).Float32())
			return
		}
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			w("%d", v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			w("%d", v.Uint())
		case reflect.Complex64, reflect.Complex128:
			c := v.Complex()
			w("(%.*g+%.*gi)", precision, real(c), precision, imag(c))
		case reflect.Bool:
			w("%v", v.Bool())
		default:
			w("%.*g", precision, v.Interface())
		}
	}

	dims := t.Shape().Dimensions
	t.ConstFlatData(func(flat any) {
		values := reflect.ValueOf(flat)
		for _, dim := range dims {
			w("[%d]", dim)
		}
		w("%s", values.Type().Elem())
		if len(dims) == 0 {
			w("(")
			wValue(values.Index(0))
			w(")")
			return
		}

		// indices to print for an axis of the given dimension, with -1 marking the ellipsis.
		selected := func(dim int) []int {
			if dim <= MaxElementsPerRow {
				indices := make([]int, dim)
				for ii := range indices {
					indices[ii] = ii
				}
				return indices
			}
			half := MaxElementsPerRow / 2
			indices := make([]int, 0, 2*half+1)
			for ii := range half {
				indices = append(indices, ii)
			}
			indices = append(indices, -1)
			for ii := dim - half; ii < dim; ii++ {
				indices = append(indices, ii)
			}
			return indices
		}

		strides := layoutStrides(dims)
		var printAxis func(axis, offset int)
		printAxis = func(axis, offset int) {
			w("{")
			lastAxis := axis == len(dims)-1
			indentStr := "\n" + strings.Repeat(" ", axis+1)
			for ii, idx := range selected(dims[axis]) {
				if ii > 0 {
					if lastAxis {
						w(", ")
					} else {
						w(",%s", indentStr)
					}
				}
				if idx == -1 {
					w("...")
					continue
				}
				if lastAxis {
					wValue(values.Index(offset + idx))
				} else {
					printAxis(axis+1, offset+idx*strides[axis])
				}
			}
			w("}")
		}
		printAxis(0, 0)
	})
	return buf.String()
}

// GoStr converts to string, using a Go-syntax representation that can be copied&pasted back to code.
func (t *Tensor) GoStr() string {
	t.AssertValid()
	if t.Shape().IsZeroSize() {
		return t.shape.String()
	}
	value := t.Value()
	if t.IsScalar() {
		return fmt.Sprintf("%s(%v)", t.shape.DType.GoType(), value)
	}
	return fmt.Sprintf("%s: %v", t.shape, value)
}
