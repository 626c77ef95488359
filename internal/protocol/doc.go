// Package protocol owns the dprint process-plugin wire contract.
//
// Ownership boundary:
// - message kinds and one struct per variant
// - frame body layout per kind (order is part of the wire contract)
// - schema establishment before the message loop
//
// Framing primitives live in protocol/frame.
package protocol
