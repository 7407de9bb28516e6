// Package intercept times calls made against a wrapped object and reports one
// metrics.Observation per call to a sink. The interceptor forwards arguments,
// results and errors unchanged; it only measures around them.
//
// Static wrappers implement the capability interface by hand and route each
// method through Observe or Call. WrapFunc covers the dynamic case with a
// reflection-based forwarder.
package intercept
