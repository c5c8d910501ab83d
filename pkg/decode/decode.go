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

// Package decode turns raw OTLP export payloads into pdata object models.
// It is pure: no I/O, no clock, no allocation beyond the decoded model.
package decode

import (
	"strings"

	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptrace"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"

	"github.com/carverauto/otelgate/pkg/models"
)

// Format selects the wire encoding of an OTLP payload.
type Format int

const (
	// FormatAuto sniffs the payload and falls back to the other encoding
	// when the first guess fails to parse.
	FormatAuto Format = iota
	FormatJSON
	FormatProtobuf
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatProtobuf:
		return "protobuf"
	default:
		return "auto"
	}
}

// FormatFromContentType maps an HTTP Content-Type to a wire format.
// Unknown or missing content types fall back to auto-detection.
func FormatFromContentType(contentType string) Format {
	ct := strings.ToLower(strings.TrimSpace(contentType))

	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}

	switch ct {
	case "application/json":
		return FormatJSON
	case "application/x-protobuf", "application/protobuf":
		return FormatProtobuf
	default:
		return FormatAuto
	}
}

// looksLikeJSON reports whether the payload plausibly starts a JSON
// document. OTLP protobuf messages never begin with '{' or '['.
func looksLikeJSON(payload []byte) bool {
	for _, b := range payload {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}

	return false
}

// DecodeLogs parses an OTLP logs export payload.
func DecodeLogs(payload []byte, format Format) (plog.Logs, error) {
	req := plogotlp.NewExportRequest()

	err := unmarshal(payload, format, models.SignalLogs, req.UnmarshalJSON, req.UnmarshalProto)
	if err != nil {
		return plog.Logs{}, err
	}

	return req.Logs(), nil
}

// DecodeTraces parses an OTLP traces export payload.
func DecodeTraces(payload []byte, format Format) (ptrace.Traces, error) {
	req := ptraceotlp.NewExportRequest()

	err := unmarshal(payload, format, models.SignalSpans, req.UnmarshalJSON, req.UnmarshalProto)
	if err != nil {
		return ptrace.Traces{}, err
	}

	return req.Traces(), nil
}

// signalMetrics labels decode failures for metrics payloads. A metrics
// export carries gauges, sums, and histograms alike, so errors get a
// metrics-wide label rather than any one point type.
const signalMetrics = models.Signal("metrics")

// DecodeMetrics parses an OTLP metrics export payload.
func DecodeMetrics(payload []byte, format Format) (pmetric.Metrics, error) {
	req := pmetricotlp.NewExportRequest()

	err := unmarshal(payload, format, signalMetrics, req.UnmarshalJSON, req.UnmarshalProto)
	if err != nil {
		return pmetric.Metrics{}, err
	}

	return req.Metrics(), nil
}

// unmarshal drives one payload through the selected decoder. In auto mode
// the sniffed format goes first and the other is tried when it fails; the
// error from both attempts survives into the DecodeError.
func unmarshal(payload []byte, format Format, signal models.Signal, fromJSON, fromProto func([]byte) error) error {
	if len(payload) == 0 {
		return &DecodeError{Signal: signal, Format: format, Kind: KindEmpty}
	}

	switch format {
	case FormatJSON:
		if err := fromJSON(payload); err != nil {
			return &DecodeError{Signal: signal, Format: format, Kind: KindMalformed, JSONErr: err}
		}

		return nil
	case FormatProtobuf:
		if err := fromProto(payload); err != nil {
			return &DecodeError{Signal: signal, Format: format, Kind: KindMalformed, ProtoErr: err}
		}

		return nil
	default:
	}

	first, second := fromProto, fromJSON
	if looksLikeJSON(payload) {
		first, second = fromJSON, fromProto
	}

	firstErr := first(payload)
	if firstErr == nil {
		return nil
	}

	secondErr := second(payload)
	if secondErr == nil {
		return nil
	}

	decErr := &DecodeError{Signal: signal, Format: format, Kind: KindUnsupported}
	if looksLikeJSON(payload) {
		decErr.JSONErr, decErr.ProtoErr = firstErr, secondErr
	} else {
		decErr.ProtoErr, decErr.JSONErr = firstErr, secondErr
	}

	return decErr
}
