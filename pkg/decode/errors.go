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
	"fmt"

	"github.com/carverauto/otelgate/pkg/models"
)

// ErrorKind classifies decode failures.
type ErrorKind int

const (
	// KindMalformed means the payload failed to parse in an explicitly
	// requested format.
	KindMalformed ErrorKind = iota
	// KindUnsupported means auto-detection exhausted both formats.
	KindUnsupported
	// KindEmpty means the payload had no bytes.
	KindEmpty
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindEmpty:
		return "empty"
	default:
		return "malformed"
	}
}

// DecodeError reports a failed decode with the underlying parser errors.
// When auto-detection fails, both JSONErr and ProtoErr are populated so
// callers can surface why neither format matched.
type DecodeError struct {
	Signal   models.Signal
	Format   Format
	Kind     ErrorKind
	JSONErr  error
	ProtoErr error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Kind == KindEmpty:
		return fmt.Sprintf("decode %s: empty payload", e.Signal)
	case e.JSONErr != nil && e.ProtoErr != nil:
		return fmt.Sprintf("decode %s: payload matched no supported format (json: %v; protobuf: %v)",
			e.Signal, e.JSONErr, e.ProtoErr)
	case e.JSONErr != nil:
		return fmt.Sprintf("decode %s as json: %v", e.Signal, e.JSONErr)
	case e.ProtoErr != nil:
		return fmt.Sprintf("decode %s as protobuf: %v", e.Signal, e.ProtoErr)
	default:
		return fmt.Sprintf("decode %s: %s payload", e.Signal, e.Kind)
	}
}

func (e *DecodeError) Unwrap() []error {
	var errs []error

	if e.JSONErr != nil {
		errs = append(errs, e.JSONErr)
	}

	if e.ProtoErr != nil {
		errs = append(errs, e.ProtoErr)
	}

	return errs
}
