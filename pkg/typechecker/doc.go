// Package typechecker implements the static rules for untagged unions
// (`#[unsafe_enum] enum` and native `union` items). It validates declarations
// and computes their layout descriptors, classifies patterns as refutable or
// irrefutable, enforces multi-arm legality, gates payload access behind unsafe
// contexts and checks derive requests against per-type capability sets.
// Failures are reported as diagnostics; Go errors are reserved for misuse of
// the API itself.
package typechecker
