// Package pipeline drives a review run over the paginated ban list.
//
// BatchProcessor evaluates the bans of one page with a fixed concurrency
// ceiling, spacing out admissions with the throttle and turning every
// failure into a placeholder verdict. Paginator walks the ban list page by
// page, hands each page's new bans to the BatchProcessor and passes the
// verdicts to the sinks before moving on, so a run that stops early keeps
// everything written so far.
package pipeline
