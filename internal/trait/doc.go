// Package trait defines trait vectors and the bounded metrics that compare
// them.
//
//   - [Compatibility]: an outer node's attributes against the central node's
//     preferences
//   - [Similarity]: two outer nodes' attributes against each other
//
// Both map into [0, 1] using the normalised L1 distance over the configured
// [Range]. They are pure and deterministic.
package trait
