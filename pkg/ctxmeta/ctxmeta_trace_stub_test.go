//go:build !otel
// +build !otel

package ctxmeta_test

import (
	"context"
	"testing"

	"github.com/Gunvolt24/dms_events/pkg/ctxmeta"
)

func TestTraceFromContext_NoOtelBuild_ReturnEmpty(t *testing.T) {
	if got, ok := ctxmeta.TraceFromContext(context.Background()); ok || got != (ctxmeta.Trace{}) {
		t.Fatalf("TraceFromContext => %+v,%v; want zero, false", got, ok)
	}
}
