// Package orchestration runs the two pipelines on top of the execution
// substrate: the concurrent fetch pipeline, which starts every request
// eagerly and joins them one at a time, and the fetch+analyze pipeline,
// which fans in every chain before aggregating the bit counts.
package orchestration
