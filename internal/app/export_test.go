package app

import "io"

func SetTraceWriter(a *App, w io.Writer) *App {
	a.traceWriter = w
	return a
}
