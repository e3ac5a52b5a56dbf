package httpstep

import "strings"

type stringReadCloser struct {
	*strings.Reader
}

func (stringReadCloser) Close() error { return nil }

func newStringReadCloser(s string) stringReadCloser {
	return stringReadCloser{strings.NewReader(s)}
}
