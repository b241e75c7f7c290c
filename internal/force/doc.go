// Package force turns compatibility and similarity scores into force vectors.
//
// Two pieces make up the net force on an outer node:
//
//   - a central [Law] pulling it toward (or pushing it from) the central node
//   - short-range [Repulsion] between pairs of outer nodes, weighted by how
//     similar they are
//
// [Accumulate] sums both for every node. Pairwise work makes it O(N²), which
// limits the engine to a few dozen nodes.
package force
