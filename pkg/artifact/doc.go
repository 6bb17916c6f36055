// Package artifact persists rendered derived types: one directory per slug
// under the modules root holding the module source, plus an entry in the
// JSON module registry that enables it in the host application.
//
// The two writes are not transactional. A failure after the module file is
// written leaves it on disk without a registry entry.
package artifact
