// Package model defines the records that flow through a ban review.
//
// This package contains the following main types:
//   - BanRecord: one row read from the community ban list
//   - EvidenceRecord: one sampled piece of user activity or mod-log removal
//   - ClassifiedEvidence: an EvidenceRecord with its detected language
//   - ThreadKey: the discussion a content URL belongs to
//   - Verdict: the final, immutable outcome for one banned user
//
// Records are validated at construction. Invalid input is rejected with a
// sentinel error instead of travelling through the pipeline half-filled.
package model
