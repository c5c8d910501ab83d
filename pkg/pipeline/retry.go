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
	"math/rand"
	"time"
)

// RetryConfig is exponential backoff with proportional jitter: the delay
// for attempt n is base*2^n plus up to half that again, capped at MaxDelay.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches the delivery pipeline defaults: three
// attempts, 100ms base, 10s ceiling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// DelayForAttempt computes the backoff before retrying attempt n
// (0-based). The result is in [base*2^n, 1.5*base*2^n], capped at
// MaxDelay.
func (c RetryConfig) DelayForAttempt(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := c.BaseDelay

	for i := 0; i < attempt; i++ {
		delay *= 2

		if delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}

	if delay > 0 {
		delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))
	}

	if delay > c.MaxDelay {
		return c.MaxDelay
	}

	return delay
}

// sleep waits out the backoff, returning early if ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
