// Package pipeline runs a duplicate check as a sequence of steps.
//
// A run reads a document, splits it into sentences, looks every sentence up
// in the similarity workflow, and renders the matches into a report file.
// Each stage is implemented as a Step that receives the shared
// model.CheckReport and fills in its part.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It provides consistent error handling and logging across steps
// 2. It supports cancellation via context between long-running stages
// 3. Tests can replace a single step (usually the lookup) with a fake
//
// Lookups inside a run can be sequential or bounded-concurrent using
// errgroup, and BatchProcessor checks several documents at once.
package pipeline
