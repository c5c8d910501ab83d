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
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/otelgate/pkg/models"
)

type fakeFirehose struct {
	batchSizes []int
	calls      int
	respond    func(call int, input *firehose.PutRecordBatchInput) (*firehose.PutRecordBatchOutput, error)
}

func (f *fakeFirehose) PutRecordBatch(_ context.Context, input *firehose.PutRecordBatchInput,
	_ ...func(*firehose.Options)) (*firehose.PutRecordBatchOutput, error) {
	call := f.calls
	f.calls++
	f.batchSizes = append(f.batchSizes, len(input.Records))

	if f.respond != nil {
		return f.respond(call, input)
	}

	return acceptAll(input), nil
}

func acceptAll(input *firehose.PutRecordBatchInput) *firehose.PutRecordBatchOutput {
	return &firehose.PutRecordBatchOutput{
		FailedPutCount:   aws.Int32(0),
		RequestResponses: make([]types.PutRecordBatchResponseEntry, len(input.Records)),
	}
}

func throttleError() error {
	return &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
}

func validationError() error {
	return &smithy.GenericAPIError{Code: "ValidationException", Message: "bad request"}
}

func testRows(n int) []models.Row {
	rows := make([]models.Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.Row{
			"_signal":      "logs",
			"service_name": "checkout",
			"body":         fmt.Sprintf("msg-%d", i),
		})
	}

	return rows
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
}

func TestSendAllChunksAt500(t *testing.T) {
	fh := &fakeFirehose{}
	sender := NewFirehoseSender(fh, map[string]string{"logs": "logs-stream"}, fastRetry(), nil)

	result := sender.SendAll(context.Background(), map[string][]models.Row{
		"logs": testRows(501),
	})

	assert.True(t, result.OK())
	assert.Equal(t, 501, result.Succeeded["logs"])
	assert.Equal(t, []int{500, 1}, fh.batchSizes)
}

func TestSendAllEncodesNDJSON(t *testing.T) {
	var captured []types.Record

	fh := &fakeFirehose{respond: func(_ int, input *firehose.PutRecordBatchInput) (*firehose.PutRecordBatchOutput, error) {
		captured = input.Records
		return acceptAll(input), nil
	}}

	sender := NewFirehoseSender(fh, map[string]string{"logs": "logs-stream"}, fastRetry(), nil)
	result := sender.SendAll(context.Background(), map[string][]models.Row{"logs": testRows(2)})

	require.True(t, result.OK())
	require.Len(t, captured, 2)

	for _, rec := range captured {
		assert.Equal(t, byte('\n'), rec.Data[len(rec.Data)-1])
		assert.Contains(t, string(rec.Data), `"service_name":"checkout"`)
	}
}

func TestSendAllRequeuesPartialFailures(t *testing.T) {
	fh := &fakeFirehose{respond: func(call int, input *firehose.PutRecordBatchInput) (*firehose.PutRecordBatchOutput, error) {
		if call > 0 {
			return acceptAll(input), nil
		}

		// First call: reject the middle record only.
		responses := make([]types.PutRecordBatchResponseEntry, len(input.Records))
		responses[1] = types.PutRecordBatchResponseEntry{
			ErrorCode:    aws.String("ServiceUnavailableException"),
			ErrorMessage: aws.String("try again"),
		}

		return &firehose.PutRecordBatchOutput{
			FailedPutCount:   aws.Int32(1),
			RequestResponses: responses,
		}, nil
	}}

	sender := NewFirehoseSender(fh, map[string]string{"logs": "logs-stream"}, fastRetry(), nil)
	result := sender.SendAll(context.Background(), map[string][]models.Row{"logs": testRows(3)})

	assert.True(t, result.OK())
	assert.Equal(t, 3, result.Succeeded["logs"])
	assert.Equal(t, []int{3, 1}, fh.batchSizes, "only the rejected record is retried")
}

func TestSendAllRetriesThrottling(t *testing.T) {
	fh := &fakeFirehose{respond: func(call int, input *firehose.PutRecordBatchInput) (*firehose.PutRecordBatchOutput, error) {
		if call == 0 {
			return nil, throttleError()
		}

		return acceptAll(input), nil
	}}

	sender := NewFirehoseSender(fh, map[string]string{"logs": "logs-stream"}, fastRetry(), nil)
	result := sender.SendAll(context.Background(), map[string][]models.Row{"logs": testRows(2)})

	assert.True(t, result.OK())
	assert.Equal(t, 2, result.Succeeded["logs"])
	assert.Equal(t, 2, fh.calls)
}

func TestSendAllFailsFastOnValidationError(t *testing.T) {
	fh := &fakeFirehose{respond: func(_ int, _ *firehose.PutRecordBatchInput) (*firehose.PutRecordBatchOutput, error) {
		return nil, validationError()
	}}

	sender := NewFirehoseSender(fh, map[string]string{"logs": "logs-stream"}, fastRetry(), nil)
	result := sender.SendAll(context.Background(), map[string][]models.Row{"logs": testRows(2)})

	assert.False(t, result.OK())
	assert.Error(t, result.Failed["logs"])
	assert.Equal(t, 1, fh.calls, "validation errors do not retry")
}

func TestSendAllGivesUpAfterMaxAttempts(t *testing.T) {
	fh := &fakeFirehose{respond: func(_ int, _ *firehose.PutRecordBatchInput) (*firehose.PutRecordBatchOutput, error) {
		return nil, throttleError()
	}}

	sender := NewFirehoseSender(fh, map[string]string{"logs": "logs-stream"}, fastRetry(), nil)
	result := sender.SendAll(context.Background(), map[string][]models.Row{"logs": testRows(1)})

	assert.False(t, result.OK())
	assert.Equal(t, 3, fh.calls)
}

func TestSendAllMissingStream(t *testing.T) {
	fh := &fakeFirehose{}
	sender := NewFirehoseSender(fh, map[string]string{}, fastRetry(), nil)

	result := sender.SendAll(context.Background(), map[string][]models.Row{"logs": testRows(1)})

	assert.False(t, result.OK())
	assert.ErrorIs(t, result.Failed["logs"], errNoStream)
	assert.Zero(t, fh.calls)
}

func TestSendAllTablesAreIndependent(t *testing.T) {
	fh := &fakeFirehose{}
	sender := NewFirehoseSender(fh, map[string]string{"logs": "logs-stream"}, fastRetry(), nil)

	result := sender.SendAll(context.Background(), map[string][]models.Row{
		"logs":   testRows(1),
		"traces": testRows(1),
	})

	assert.Equal(t, 1, result.Succeeded["logs"])
	assert.ErrorIs(t, result.Failed["traces"], errNoStream)
}

func TestNopSender(t *testing.T) {
	result := NopSender{}.SendAll(context.Background(), map[string][]models.Row{
		"logs": testRows(7),
	})

	assert.True(t, result.OK())
	assert.Equal(t, 7, result.Succeeded["logs"])
}

func TestDelayForAttemptBounds(t *testing.T) {
	cfg := DefaultRetryConfig()

	for i := 0; i < 50; i++ {
		d0 := cfg.DelayForAttempt(0)
		assert.GreaterOrEqual(t, d0, 100*time.Millisecond)
		assert.LessOrEqual(t, d0, 150*time.Millisecond)

		d1 := cfg.DelayForAttempt(1)
		assert.GreaterOrEqual(t, d1, 200*time.Millisecond)
		assert.LessOrEqual(t, d1, 300*time.Millisecond)
	}

	assert.Equal(t, 10*time.Second, cfg.DelayForAttempt(10))
}
