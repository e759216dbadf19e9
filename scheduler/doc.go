// Package scheduler starts and stops every room on a cron schedule, so the
// exhibit floor opens and closes itself without an operator.
package scheduler
