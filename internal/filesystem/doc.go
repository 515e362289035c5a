/*
Package filesystem holds the filesystem primitives shared by the scanner,
the change-detection cache, the catalog store and the upload service.

Every function takes an afero.Fs so the same code runs against the real
disk (afero.NewOsFs) and against in-memory trees in tests.

# Retries

StatWithRetry and OpenWithRetry retry NFS stale file handle errors (ESTALE)
with exponential backoff. Any other error is returned immediately. Defaults:

  - MaxRetries: 3
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

# Atomic writes

WriteFileAtomic writes into a temporary file in the destination directory,
syncs it and renames it over the destination, so a concurrent reader sees
either the previous content or the new content and never a partial file.

# Timestamps

ChangeTime returns the inode change time where the platform exposes it and
falls back to the modification time elsewhere (and for in-memory files).
*/
package filesystem
