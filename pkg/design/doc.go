// Package design holds the trial structure of the trialrun experiments: conditions,
// blocks, the constrained trial sequence generator and the comparison stimulus sampler.
//
// # Randomness
//
// Nothing in this package touches process-wide randomness. Every generator takes a
// Source, so a session seeded with the same value reproduces the same block orders and
// the same stimulus pairs:
//
//	rng := design.NewSource(42)
//	block, err := design.BuildDMTSBlock(rng, 1)
//
// # Sequence constraint
//
// Trial orders are produced by rejection sampling: the condition list is shuffled until
// no side (left or right) appears three times in a row. Only the side column is
// constrained; delays may repeat in any pattern.
package design
