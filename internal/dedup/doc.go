// Package dedup detects reposted announcements with a two-tier policy:
// a TF-IDF cosine score decides the obvious cases, and an LLM verification
// call breaks ties in the ambiguous middle zone.
//
// Decision policy per pair:
//   - score >= 0.95: automatic duplicate, no verification
//   - 0.25 <= score < 0.95: escalate to a binary yes/no verification call;
//     verification failure defaults to "not a duplicate" (fail-open, so a
//     flaky provider never causes a false merge)
//   - score < 0.25: never a duplicate
//
// Duplicate groups keep exactly one canonical member: the newest posting by
// created_at. When a new posting matches an older canonical one, the roles
// swap — the old posting is linked to the new one, which stays canonical.
// New postings are only compared against existing canonical postings
// (duplicate_of unset) within a bounded recency window; comparing against
// the full history would resurrect stale matches and scale quadratically.
package dedup
