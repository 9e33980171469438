package evaluator

import (
	"github.com/nao1215/banreview/internal/model"
)

// Dedup merges activity and mod-log evidence into the records the
// decision is based on.
//
// Activity is first reduced to one record per thread, preferring a reply
// over the submission itself; activity whose URL names no thread is
// dropped. The mod-log records are then appended and the union is reduced
// by exact URL. A later record replaces an earlier one with the same URL
// but keeps its position, so a mod-log entry wins over a sample of the
// same content.
func Dedup(activity, modLog []model.ClassifiedEvidence) []model.ClassifiedEvidence {
	merged := append(DedupByThread(activity), modLog...)
	return DedupByURL(merged)
}

// DedupByThread keeps one record per thread in first-seen thread order.
// A comment replaces a non-comment of the same thread; otherwise the
// first record wins.
func DedupByThread(records []model.ClassifiedEvidence) []model.ClassifiedEvidence {
	index := make(map[string]int, len(records))
	out := make([]model.ClassifiedEvidence, 0, len(records))
	for _, rec := range records {
		key, ok := model.ParseThreadKey(rec.URL)
		if !ok {
			continue
		}
		rec.IsComment = key.IsComment
		i, seen := index[key.ThreadID]
		if !seen {
			index[key.ThreadID] = len(out)
			out = append(out, rec)
			continue
		}
		if !out[i].IsComment && rec.IsComment {
			out[i] = rec
		}
	}
	return out
}

// DedupByURL keeps one record per URL at the position of its first
// occurrence, holding the value of its last occurrence.
func DedupByURL(records []model.ClassifiedEvidence) []model.ClassifiedEvidence {
	index := make(map[string]int, len(records))
	out := make([]model.ClassifiedEvidence, 0, len(records))
	for _, rec := range records {
		if i, seen := index[rec.URL]; seen {
			out[i] = rec
			continue
		}
		index[rec.URL] = len(out)
		out = append(out, rec)
	}
	return out
}

// Count returns the number of target-language records and the total.
func Count(evidence []model.ClassifiedEvidence) (target, total int) {
	for _, c := range evidence {
		if c.IsTargetLanguage {
			target++
		}
	}
	return target, len(evidence)
}

// Ratio returns target/total as a percentage, 0 when total is 0.
func Ratio(target, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(target) * 100 / float64(total)
}

// Recommend applies the decision rule: unban when total < MinEvidence or
// the target-language ratio is at least UnbanRatio percent. The ratio is
// compared in integers so 7 of 10 is exactly 70%.
func Recommend(target, total int) bool {
	return total < MinEvidence || target*100 >= UnbanRatio*total
}
