// Package catalog defines the catalog snapshot produced by the scanner and
// the read-side operations the HTTP layer performs on it.
//
// A Snapshot is rebuilt from scratch on every scan and written through
// Store.Write, which replaces the file atomically; readers load it with
// Store.Load and treat the result as immutable. Filter and ComputeStats
// never mutate the snapshot they are given.
//
// On-disk format:
//
//	{ "media_files": [ {id,name,url,type,mime_type,size,path,md5,created,modified}, ... ],
//	  "total_files": int, "total_size": int, "last_updated": RFC 3339, "version": "1.0" }
package catalog
