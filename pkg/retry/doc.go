// Package retry provides exponential backoff with jitter for sensor start-up.
//
// Drivers use it for steps that can fail for a while and then succeed: a replay log
// not yet flushed by the recorder, a device node that appears after plug-in.
//
// # Classification
//
// Do stops at the first error classified invalid or fatal by the errors package;
// those never succeed on a second attempt. Unclassified and transient errors are
// retried until MaxAttempts.
//
// # Usage
//
//	f, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*os.File, error) {
//	    return os.Open(path)
//	})
//
// Every wait honours ctx.
package retry
