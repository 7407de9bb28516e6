package intercept

import (
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// WrapFunc returns a function with fn's exact signature that forwards every
// call to fn through ic. A non-nil trailing error result marks the call as
// failed. Values that are not functions are returned unchanged.
func WrapFunc[F any](ic *Interceptor, method string, fn F) F {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		ic.log.Debug("intercept: not a function, left unwrapped", "method", method)
		return fn
	}
	t := v.Type()
	errIdx := -1
	if n := t.NumOut(); n > 0 && t.Out(n-1) == errorType {
		errIdx = n - 1
	}
	wrapped := reflect.MakeFunc(t, func(args []reflect.Value) []reflect.Value {
		var out []reflect.Value
		_ = ic.Observe(method, func() error {
			if t.IsVariadic() {
				out = v.CallSlice(args)
			} else {
				out = v.Call(args)
			}
			if errIdx >= 0 && !out[errIdx].IsNil() {
				return out[errIdx].Interface().(error)
			}
			return nil
		})
		return out
	})
	return wrapped.Interface().(F)
}
