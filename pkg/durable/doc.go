// Package durable provides ready-made implementations of the
// larder.Durable interface: the persistent byte-oriented key-value tier
// behind a cache Store.
//
// Implementations:
//
//   - [Memory] — process-local map; nothing survives a restart. For tests
//     and for running a cache without real persistence.
//   - [File] — one file per record in a local directory, defaulting to a
//     subdirectory of os.UserCacheDir().
//   - [Redis] — records in Redis without a server-side TTL, so expired
//     entries stay reachable for stale fallback until the cache removes
//     them.
//   - [S3] — records as objects in an S3-compatible bucket (AWS, MinIO).
//   - [Postgres] — records in a Postgres table; [Migrate] applies the
//     embedded schema.
//
// All implementations report a missing key with larder.ErrNotFound and
// leave retry policy to the cache layer, which treats any other error as
// a transient storage failure.
//
// Clients and pools are injected and their lifecycles stay with the
// caller:
//
//	d := durable.NewRedis(client)          // client from go-redis
//	d, err := durable.NewFile("")          // default directory
//	d, err := durable.NewS3(durable.S3Config{Bucket: "cache", AccessKey: key, SecretKey: secret})
//	d := durable.NewPostgres(pool)         // pool from pgxpool
package durable
