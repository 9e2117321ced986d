// Package retry provides exponential backoff retry for transient failures.
//
// Network outputs use it per buffer (DefaultConfig) and when dialing their
// backend during start (Connect):
//
//	err := retry.Do(ctx, retry.Connect(), func() error {
//	    return client.Connect(ctx)
//	})
//
// Wrap an error with NonRetryable to stop the loop early, for example when
// an HTTP endpoint answers 4xx.
package retry
