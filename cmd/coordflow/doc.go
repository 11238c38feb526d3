// Command coordflow runs one coordination session end to end: it stands up
// the configured document store, registers a producer/consumer agent pair,
// drives the six-phase workflow pipeline, checkpoints the session, and
// prints the aggregate report as JSON.
package main
