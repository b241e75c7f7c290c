// Package layout arranges trait-carrying nodes in 3D around one central node.
//
// Each outer node is pulled toward a rest shell around the central node with
// a strength that grows with its compatibility (the central node's
// preferences against the node's attributes). Outer nodes that crowd each
// other are pushed apart in proportion to their attribute similarity. The
// layout is advanced one frame at a time by Engine.Step, which the caller
// drives from its own render or tick loop.
//
// Step is O(N²) in the number of outer nodes and is meant for populations of
// at most a few dozen nodes. An Engine is not safe for concurrent use.
package layout
