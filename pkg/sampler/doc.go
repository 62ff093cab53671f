/*
Package sampler implements temperature-controlled weighted random choice over
a small, ordered set of labeled outcomes.

A temperature of 0 always picks the outcome with the highest weight. A
temperature of 1 samples the weights as given, and higher temperatures flatten
the distribution toward uniform. The random draw comes from an injected Source
so that callers can reproduce a run with a fixed seed.

The displayed distribution returned by Sample always reflects the original
weights, never the temperature-adjusted ones.
*/
package sampler
