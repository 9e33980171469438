// Package evaluator decides, per banned user, whether the ban should be
// reconsidered.
//
// An evaluation runs as a pipeline of steps over an Evaluation record:
//
//	screen   -> does the ban reason cite the language rule?
//	gather   -> search samples and mod-log removals
//	classify -> language of every record
//	decide   -> dedup, ratio, verdict
//
// A step may finish the evaluation early (a ban for another reason is
// screened out); the pipeline stops as soon as a terminal state is reached.
//
// # Decision rule
//
// After deduplication, an unban is recommended when fewer than five records
// remain or when at least 70% of them are in the target language. Text the
// detector cannot classify counts as target language, so thin or ambiguous
// evidence leans toward a second look rather than a kept ban.
package evaluator
