package store

import "fmt"

// Key layout. Run-scoped artifacts are transient and removed after a
// successful run; design-scoped artifacts are durable and reused across
// runs against the same edge design.

// RunPrefix returns the transient prefix for one run.
func RunPrefix(runID string) string {
	return fmt.Sprintf("runs/%s", runID)
}

// SourceKey addresses the uploaded source document for a run.
func SourceKey(runID string) string {
	return fmt.Sprintf("runs/%s/source.pdf", runID)
}

// ChunkKey addresses one extracted chunk sub-document.
func ChunkKey(runID string, idx int) string {
	return fmt.Sprintf("runs/%s/chunks/chunk_%04d.pdf", runID, idx)
}

// ChunkManifestKey addresses the run's chunk manifest.
func ChunkManifestKey(runID string) string {
	return fmt.Sprintf("runs/%s/chunks.json", runID)
}

// RenderedChunkKey addresses one rendered chunk.
func RenderedChunkKey(runID string, idx int) string {
	return fmt.Sprintf("runs/%s/rendered/chunk_%04d.pdf", runID, idx)
}

// MergeNodeKey addresses an intermediate merge document.
func MergeNodeKey(runID string, level, idx int) string {
	return fmt.Sprintf("runs/%s/merge/level%d_%04d.pdf", runID, level, idx)
}

// MergeCheckpointKey addresses the merge resume checkpoint.
func MergeCheckpointKey(runID string) string {
	return fmt.Sprintf("runs/%s/merge/checkpoint.json", runID)
}

// FinalKey addresses the finished document.
func FinalKey(runID string) string {
	return fmt.Sprintf("runs/%s/final.pdf", runID)
}

// DesignPrefix returns the durable prefix for one edge design.
func DesignPrefix(designID string) string {
	return fmt.Sprintf("designs/%s", designID)
}

// SliceManifestKey addresses a slice-set manifest for one edge and
// variant ("raw" or "masked").
func SliceManifestKey(designID, edge, variant string) string {
	return fmt.Sprintf("designs/%s/slices/%s/%s.json", designID, edge, variant)
}

// SliceKey addresses one materialized slice raster.
func SliceKey(designID, edge, variant string, leaf int) string {
	return fmt.Sprintf("designs/%s/slices/%s/%s/%04d.png", designID, edge, variant, leaf)
}

// EdgeSourceKey addresses the uploaded source image for one edge of a
// design, kept for derived-slice resolution.
func EdgeSourceKey(designID, edge string) string {
	return fmt.Sprintf("designs/%s/sources/%s", designID, edge)
}
