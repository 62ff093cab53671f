/*
Package markov learns word-to-word transition frequencies from text and
generates continuations from them one token at a time.

Models live in a SQLite database reached through database/sql; the caller
chooses the driver and data source. Generation delegates every next-token
choice to the sampler package, so temperature 0 is always the most frequent
continuation and higher temperatures let rarer ones through. Trace records
each step together with the probability the model had learned for it, which
makes it possible to show how one plausible word commits the output to a
whole narrative.
*/
package markov
