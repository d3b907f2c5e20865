// Package download implements the best-effort download flow for a catalog
// image.
//
// Premium images open the marketplace purchase page and stop there. Free
// images are fetched, transcoded to a lossless container and saved under
// the original name with a new extension. Any failure on that path falls
// back to saving the original asset by link, exactly once. Run never
// returns an error: the Outcome says which branch was taken and why, and
// failures are logged and counted by stage in Prometheus.
//
// The flow is assembled from small collaborators (Fetcher, Saver, Opener)
// so the server can stream to an HTTP response while the CLI writes to
// disk.
package download
