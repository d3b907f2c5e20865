/*
Package filesystem wraps os.Stat and os.Open with retry logic for stale file
handle errors (ESTALE), which show up when the image tree or the metadata
document live on an NFS mount that is re-exported while the server runs.

Only ESTALE is retried; every other error is returned immediately. Retries use
exponential backoff capped at RetryConfig.MaxBackoff and are counted in the
backdrops_filesystem_* Prometheus metrics.

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
*/
package filesystem
