// Package stage defines the transform steps a response body flows through
// before it reaches the caller, and the registries used to select them.
//
// # Stages
//
// A [Stage] wraps an upstream byte reader and yields [Chunk] values through a
// [Source]. Byte stages ([Bytes]) transform the stream incrementally and pull
// from upstream only as fast as they are read. Object stages ([Object])
// consume the whole body and emit a single structured value.
//
// # Registries
//
// [Registries] groups the three lookup tables a pipeline is assembled from:
// content-encoding tokens to decompressors, media types to parsers and
// charsets to decoders. Registries are immutable once built; use [Extend] to
// derive a new one:
//
//	regs := stage.Defaults()
//	regs.Parsers = stage.Extend(regs.Parsers, map[string]stage.Constructor{
//		"application/vnd.api+json": stage.JSON,
//	})
package stage
