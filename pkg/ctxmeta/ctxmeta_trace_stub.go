//go:build !otel || gopls

package ctxmeta

import "context"

// Сборка без тега `otel`: трейс в логи не попадает.
func TraceFromContext(context.Context) (Trace, bool) { return Trace{}, false }
