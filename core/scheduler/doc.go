// Package scheduler runs jobs on cron schedules. A tick that fires while the previous run of
// the same job is still going is skipped.
package scheduler
