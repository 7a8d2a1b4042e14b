// Package snapshot exports and restores the values of registered stores.
//
// A snapshot is a JSON document holding every store's current value keyed
// by store key. Documents are written to a Sink: DiskSink for local files,
// S3Sink for an S3 bucket.
//
//	doc, err := snapshot.Capture(rt.Stores())
//	name, err := snapshot.Export(ctx, rt.Stores(), snapshot.NewS3Sink(client, "bucket", "reaxar/"))
//
// Restore applies a document back onto a registry. Keys without a
// registered store are skipped.
package snapshot
