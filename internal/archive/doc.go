// Package archive stores export snapshots of the lead table.
//
// Snapshots go to S3 when a bucket is configured and to a local directory
// otherwise. Keys are laid out by date so a bucket lifecycle rule or a
// simple `find -mtime` can expire them.
package archive
