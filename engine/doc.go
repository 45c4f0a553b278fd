// Package engine implements the anchor patch pipeline.
//
// A patch locates a region of a document between two literal anchors,
// validates the replacement text, splices it in and re-parses the whole
// document before handing the result back:
//
//	Located -> Validated -> Applied -> Verified -> Committed
//
// Any failure moves the patch to Rejected and the caller gets the original
// document back unchanged. The engine never touches the filesystem; reading
// and writing files is the caller's job.
package engine
