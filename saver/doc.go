// Package saver provides destinations for exported files.
//
// The client hands a filename and a body stream to a [Saver] after the backend has
// confirmed a binary export. Implementations: [DirSaver] writes into a local directory,
// [MinioSaver] uploads to an S3-compatible bucket, and [MemorySaver] keeps the bytes in
// memory.
package saver
