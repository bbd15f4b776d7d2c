/*
Package filesystem wraps os.Stat and os.Open with retry logic for NFS stale
file handle errors (ESTALE).

Image libraries are frequently mounted over NFS or SMB. A stale handle during
a reconciliation pass would otherwise make a file look unreadable or missing,
which the reconciler would treat as a skip or, worse, as evidence that a file
moved. Only ESTALE is retried; every other error is returned immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	ok, err := filesystem.Exists(oldPath, filesystem.DefaultRetryConfig())

Retry metrics are reported through an Observer installed with SetObserver,
labelled by the volume that NewVolumeResolver maps the path to.
*/
package filesystem
