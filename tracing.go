/*
   Copyright 2026 Joseph Cumines

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package behaviorforest

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
	otlog "github.com/opentracing/opentracing-go/log"
)

var noopTracer = opentracing.NoopTracer{}

// startTickSpan opens the root span for one tree tick; finishTickSpan closes
// it, recording the tick outcome.
func startTickSpan(ctx context.Context, tracer opentracing.Tracer, tree string) (opentracing.Span, context.Context) {
	if tracer == nil {
		tracer = &noopTracer
	}
	span := tracer.StartSpan(`behaviorforest::tick`)
	span.SetTag(`tree`, tree)
	return span, opentracing.ContextWithSpan(ctx, span)
}

func finishTickSpan(span opentracing.Span, round uint64, status Status) {
	span.LogFields(
		otlog.Uint64(`round`, round),
		otlog.String(`status`, status.String()),
	)
	span.Finish()
}
