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
	"reflect"

	"github.com/ionml/ion/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// functionTypes maps registered names to their Function types, and functionTypeNames is the reverse.
//
// Registration is expected to happen during initialization (`init()` functions), so there is no locking.
var (
	functionTypes     = make(map[string]reflect.Type)
	functionTypeNames = make(map[reflect.Type]string)
)

// RegisterFunctionType registers the type of prototype as a Function under the given name, which is then
// used when printing graphs (see FunctionTypeName and Summary).
//
// The type is checked for conformance at registration: if it doesn't implement Function it returns an error
// wrapping ErrInterfaceNotImplemented. It also returns an error if the name or the type were already registered.
//
// It should be called during initialization, usually in an `init()` function.
func RegisterFunctionType(name string, prototype any) error {
	if name == "" {
		return errors.New("RegisterFunctionType requires a non-empty name")
	}
	if prototype == nil {
		return errors.Wrapf(ErrInterfaceNotImplemented, "nil prototype registered for %q", name)
	}
	t := reflect.TypeOf(prototype)
	if !t.Implements(functionType) {
		return errors.WithMessagef(notImplementedError(t), "cannot register %q", name)
	}
	if previous, found := functionTypes[name]; found {
		return errors.Errorf("function type name %q already registered for %s", name, previous)
	}
	if previous, found := functionTypeNames[t]; found {
		return errors.Errorf("type %s already registered as %q", t, previous)
	}
	functionTypes[name] = t
	functionTypeNames[t] = name
	klog.V(1).Infof("autodiff: registered function type %q (%s)", name, t)
	return nil
}

// MustRegisterFunctionType is like RegisterFunctionType, but panics on error.
func MustRegisterFunctionType(name string, prototype any) {
	if err := RegisterFunctionType(name, prototype); err != nil {
		panic(err)
	}
}

// RegisteredFunctionTypes returns the sorted names of the registered Function types.
func RegisteredFunctionTypes() []string {
	return xslices.SortedKeys(functionTypes)
}

// LookupFunctionType returns the type registered under name.
func LookupFunctionType(name string) (t reflect.Type, found bool) {
	t, found = functionTypes[name]
	return
}

// FunctionTypeName returns a printable name for the Function: the name provided by HasName if implemented,
// the registered name of its type if any, or otherwise the Go type name.
func FunctionTypeName(f Function) string {
	if f == nil {
		return "<none>"
	}
	if named, ok := f.(HasName); ok {
		return named.Name()
	}
	t := reflect.TypeOf(f)
	if name, found := functionTypeNames[t]; found {
		return name
	}
	return t.String()
}
