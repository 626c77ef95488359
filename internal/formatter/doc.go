// Package formatter is the boundary to the code transformation engine.
//
// The worker never formats code itself. A Transformer receives the file text
// and resolved options and returns the formatted text; ExecTransformer drives
// an external csharpier process over stdin/stdout.
package formatter
