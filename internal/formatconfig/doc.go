// Package formatconfig owns registered configuration sets: permissive decoding
// of the dprint global and csharpier plugin payloads, the combine/overlay rules,
// unknown-property diagnostics, and the id-keyed registry.
package formatconfig
