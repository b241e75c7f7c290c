// Package viz renders a running layout engine in the terminal.
//
// The preview is a Bubble Tea program:
//
//   - [Model]: steps the engine on every tick and draws the field
//   - [Canvas]: braille pixel canvas, 2x4 dots per cell
//   - [Camera]: perspective projection that follows the central node
//
// Nodes are drawn as dots sized by their compatibility with the central
// node; strongly compatible nodes get a dashed spoke.
//
// # Key Bindings
//
//	Space   - Pause/Resume
//	Tab     - Next central node
//	Arrows  - Drag the central node
//	[ ] J K - Select and tune physics parameters
//	A D     - Add/remove a node
//	T       - Cycle color themes
//	?       - Show help overlay
//
// A config watcher channel can be passed in [Options]; reloaded physics
// settings are applied to the engine without restarting the preview.
package viz
