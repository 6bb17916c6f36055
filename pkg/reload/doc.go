// Package reload asks an external process supervisor to restart the host
// process so a newly persisted derived type is loaded.
//
// The restart is a capability supplied by the host (Supervisor). Failure is
// fatal: the Coordinator terminates the process with ExitStatus through an
// injectable exit function, since the files on disk are already ahead of the
// running process.
package reload
