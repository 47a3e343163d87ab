// Package task orchestrates client-submitted work that is fulfilled by
// external services.
//
// A Registry holds every task record. Submissions are queued to a bounded
// worker pool that invokes the per-kind adapter: synchronous kinds resolve in
// one call, asynchronous kinds hand an external job off to the Poller, which
// queries its status until the job finishes, fails, or exhausts its attempt
// budget. A Sweeper evicts completed records once they age past retention.
// Removing a task from the registry is the only way to cancel it; trackers
// notice the removal before their next query and exit.
package task
