// Package ptr provides pointer helpers for optional record values.
package ptr

// To returns a pointer to v.
func To[T any](v T) *T {
	return &v
}

// Bool returns a pointer to b. Optional boolean record fields distinguish
// "unset" from false, so writers pass *bool.
func Bool(b bool) *bool {
	return &b
}
