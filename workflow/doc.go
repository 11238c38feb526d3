// Package workflow drives a fixed, ordered pipeline of phases across the
// agents of a coordination session. Phases run strictly in index order; the
// first failure halts the pipeline immediately and surfaces as a structured
// result naming the failed phase. Only a fully successful run compiles and
// persists the aggregate report.
package workflow
