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

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"
	"github.com/aws/smithy-go"

	"github.com/carverauto/otelgate/pkg/logger"
	"github.com/carverauto/otelgate/pkg/models"
)

// MaxRecordsPerBatch is the Firehose PutRecordBatch record limit.
const MaxRecordsPerBatch = 500

var errNoStream = errors.New("no delivery stream configured")

// FirehoseAPI is the slice of the Firehose client the sender uses.
type FirehoseAPI interface {
	PutRecordBatch(ctx context.Context, params *firehose.PutRecordBatchInput,
		optFns ...func(*firehose.Options)) (*firehose.PutRecordBatchOutput, error)
}

// FirehoseSender delivers rows as NDJSON blobs via PutRecordBatch,
// retrying throttles and requeueing records that fail inside an otherwise
// successful batch.
type FirehoseSender struct {
	client  FirehoseAPI
	streams map[string]string
	retry   RetryConfig
	log     logger.Logger
}

// NewFirehoseSender builds a sender mapping table names to delivery
// stream names.
func NewFirehoseSender(client FirehoseAPI, streams map[string]string, retry RetryConfig, log logger.Logger) *FirehoseSender {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &FirehoseSender{
		client:  client,
		streams: streams,
		retry:   retry,
		log:     log,
	}
}

// SendAll delivers every table independently; one table failing does not
// stop the others.
func (s *FirehoseSender) SendAll(ctx context.Context, grouped map[string][]models.Row) SendResult {
	result := NewSendResult()

	tables := make([]string, 0, len(grouped))
	for table := range grouped {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	for _, table := range tables {
		rows := grouped[table]
		if len(rows) == 0 {
			continue
		}

		stream, ok := s.streams[table]
		if !ok || stream == "" {
			result.Failed[table] = fmt.Errorf("%w for table %s", errNoStream, table)
			continue
		}

		records, err := encodeRecords(rows)
		if err != nil {
			result.Failed[table] = err
			continue
		}

		for _, chunk := range chunkRecords(records, MaxRecordsPerBatch) {
			sent, err := s.sendChunk(ctx, stream, chunk)
			result.Succeeded[table] += sent

			if err != nil {
				result.Failed[table] = err

				s.log.Error().Err(err).Str("table", table).Str("stream", stream).
					Msg("Firehose delivery failed")

				break
			}
		}
	}

	return result
}

// encodeRecords renders each row as one newline-terminated JSON document.
func encodeRecords(rows []models.Row) ([]types.Record, error) {
	records := make([]types.Record, 0, len(rows))

	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}

		records = append(records, types.Record{Data: append(data, '\n')})
	}

	return records, nil
}

// chunkRecords splits records into batches of at most size.
func chunkRecords(records []types.Record, size int) [][]types.Record {
	if len(records) == 0 {
		return nil
	}

	chunks := make([][]types.Record, 0, (len(records)+size-1)/size)

	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}

		chunks = append(chunks, records[start:end])
	}

	return chunks
}

// sendChunk pushes one batch, retrying retryable API errors and
// requeueing the failed subset of a partially accepted batch. It returns
// how many records were accepted.
func (s *FirehoseSender) sendChunk(ctx context.Context, stream string, chunk []types.Record) (int, error) {
	pending := chunk
	sent := 0

	for attempt := 0; ; attempt++ {
		out, err := s.client.PutRecordBatch(ctx, &firehose.PutRecordBatchInput{
			DeliveryStreamName: aws.String(stream),
			Records:            pending,
		})

		switch {
		case err != nil:
			if !isRetryable(err) {
				return sent, err
			}
		case aws.ToInt32(out.FailedPutCount) > 0:
			failed := make([]types.Record, 0, aws.ToInt32(out.FailedPutCount))

			for i, resp := range out.RequestResponses {
				if resp.ErrorCode != nil {
					failed = append(failed, pending[i])
				}
			}

			sent += len(pending) - len(failed)
			pending = failed
			err = fmt.Errorf("%d records rejected by delivery stream %s", len(failed), stream)
		default:
			return sent + len(pending), nil
		}

		if attempt >= s.retry.MaxAttempts-1 {
			return sent, err
		}

		delay := s.retry.DelayForAttempt(attempt)

		s.log.Warn().Err(err).Str("stream", stream).Int("attempt", attempt).
			Dur("backoff", delay).Int("pending", len(pending)).
			Msg("Retrying Firehose batch")

		if err := sleep(ctx, delay); err != nil {
			return sent, err
		}
	}
}

// isRetryable splits transient service trouble from permanent request
// errors. Validation and auth failures never retry.
func isRetryable(err error) bool {
	var unavailable *types.ServiceUnavailableException
	if errors.As(err, &unavailable) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailableException",
			"LimitExceededException", "InternalFailure", "RequestTimeout":
			return true
		default:
			return false
		}
	}

	return false
}
