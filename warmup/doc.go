// Package warmup pre-computes embeddings so the first classification and
// retrieval after a restart do not pay for them.
//
// A Warmer pushes texts (knowledge-base phrases and recipe titles) through
// an embedder in fixed-size batches, retrying failed batches with
// exponential backoff. Pointed at a caching embedder (ai/cache), this fills
// the persistent embedding cache.
package warmup
