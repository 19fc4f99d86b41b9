// Package pipeline implements the dependency-graph task model that drives an
// ETL run: named tasks with declared dependencies, a validating task graph,
// and a scheduler that executes the graph with bounded concurrency.
//
// Task failure is data, not control flow: a failing task body marks the task
// Failed and its dependents Skipped, but never aborts sibling branches. Only
// graph construction problems (missing dependencies, cycles) are hard errors,
// since those indicate a programming error in graph assembly.
package pipeline
