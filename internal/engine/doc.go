// Package engine implements the workflow execution core: the template
// resolver, the graph router, the block handler catalog, and the run loop
// that walks a graph from its start trigger to termination.
package engine
