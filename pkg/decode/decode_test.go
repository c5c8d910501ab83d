/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/collector/pdata/ptrace"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"
)

const logsJSON = `{
  "resourceLogs": [{
    "resource": {
      "attributes": [{"key": "service.name", "value": {"stringValue": "checkout"}}]
    },
    "scopeLogs": [{
      "logRecords": [{
        "timeUnixNano": "1700000000000000000",
        "severityNumber": 9,
        "severityText": "INFO",
        "body": {"stringValue": "order placed"}
      }]
    }]
  }]
}`

const tracesJSON = `{
  "resourceSpans": [{
    "resource": {
      "attributes": [{"key": "service.name", "value": {"stringValue": "checkout"}}]
    },
    "scopeSpans": [{
      "spans": [{
        "traceId": "0123456789abcdef0123456789abcdef",
        "spanId": "0123456789abcdef",
        "name": "charge-card",
        "kind": 2,
        "startTimeUnixNano": "1700000000000000000",
        "endTimeUnixNano": "1700000001000000000"
      }]
    }]
  }]
}`

const metricsJSON = `{
  "resourceMetrics": [{
    "scopeMetrics": [{
      "metrics": [{
        "name": "http.requests",
        "sum": {
          "aggregationTemporality": 2,
          "isMonotonic": true,
          "dataPoints": [{"timeUnixNano": "1700000000000000000", "asInt": "42"}]
        }
      }]
    }]
  }]
}`

func sampleLogs(t *testing.T) plog.Logs {
	t.Helper()

	logs, err := DecodeLogs([]byte(logsJSON), FormatJSON)
	require.NoError(t, err)

	return logs
}

func sampleTraces(t *testing.T) ptrace.Traces {
	t.Helper()

	traces, err := DecodeTraces([]byte(tracesJSON), FormatJSON)
	require.NoError(t, err)

	return traces
}

func TestDecodeLogsJSON(t *testing.T) {
	logs := sampleLogs(t)
	assert.Equal(t, 1, logs.LogRecordCount())

	rec := logs.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords().At(0)
	assert.Equal(t, "order placed", rec.Body().Str())
	assert.Equal(t, "INFO", rec.SeverityText())
}

func TestDecodeLogsProtobuf(t *testing.T) {
	req := plogotlp.NewExportRequestFromLogs(sampleLogs(t))
	payload, err := req.MarshalProto()
	require.NoError(t, err)

	logs, err := DecodeLogs(payload, FormatProtobuf)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.LogRecordCount())
}

func TestDecodeTracesJSON(t *testing.T) {
	traces := sampleTraces(t)
	assert.Equal(t, 1, traces.SpanCount())

	span := traces.ResourceSpans().At(0).ScopeSpans().At(0).Spans().At(0)
	assert.Equal(t, "charge-card", span.Name())
}

func TestDecodeMetricsJSON(t *testing.T) {
	metrics, err := DecodeMetrics([]byte(metricsJSON), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.DataPointCount())
}

func TestDecodeMetricsErrorLabel(t *testing.T) {
	_, err := DecodeMetrics([]byte(`{"resourceMetrics": [`), FormatJSON)
	require.Error(t, err)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, signalMetrics, decErr.Signal)
	assert.Contains(t, err.Error(), "decode metrics")
	assert.NotContains(t, err.Error(), "gauge")
}

func TestAutoDetectsJSON(t *testing.T) {
	logs, err := DecodeLogs([]byte("  \n"+logsJSON), FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.LogRecordCount())
}

func TestAutoDetectsProtobuf(t *testing.T) {
	req := ptraceotlp.NewExportRequestFromTraces(sampleTraces(t))
	payload, err := req.MarshalProto()
	require.NoError(t, err)

	traces, err := DecodeTraces(payload, FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, 1, traces.SpanCount())
}

func TestLooksLikeJSON(t *testing.T) {
	assert.True(t, looksLikeJSON([]byte(`{"resourceLogs":[]}`)))
	assert.True(t, looksLikeJSON([]byte(" \t\r\n{")))
	assert.True(t, looksLikeJSON([]byte("[")))
	assert.False(t, looksLikeJSON([]byte{0x0a, 0x00}))
	assert.False(t, looksLikeJSON(nil))
	assert.False(t, looksLikeJSON([]byte("   ")))
}

func TestAutoBothFormatsFail(t *testing.T) {
	_, err := DecodeLogs([]byte("definitely not telemetry"), FormatAuto)
	require.Error(t, err)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, KindUnsupported, decErr.Kind)
	assert.Error(t, decErr.JSONErr)
	assert.Error(t, decErr.ProtoErr)
	assert.Contains(t, err.Error(), "json:")
	assert.Contains(t, err.Error(), "protobuf:")
}

func TestExplicitFormatDoesNotFallBack(t *testing.T) {
	req := plogotlp.NewExportRequestFromLogs(sampleLogs(t))
	payload, err := req.MarshalProto()
	require.NoError(t, err)

	_, err = DecodeLogs(payload, FormatJSON)
	require.Error(t, err)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, KindMalformed, decErr.Kind)
	assert.Nil(t, decErr.ProtoErr)
}

func TestEmptyPayload(t *testing.T) {
	_, err := DecodeLogs(nil, FormatAuto)
	require.Error(t, err)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, KindEmpty, decErr.Kind)
}

func TestFormatFromContentType(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromContentType("application/json"))
	assert.Equal(t, FormatJSON, FormatFromContentType("application/json; charset=utf-8"))
	assert.Equal(t, FormatProtobuf, FormatFromContentType("application/x-protobuf"))
	assert.Equal(t, FormatAuto, FormatFromContentType(""))
	assert.Equal(t, FormatAuto, FormatFromContentType("text/plain"))
}
