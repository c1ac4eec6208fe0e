package extract

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/codeninja55/go-radx/dicom"
	"github.com/codeninja55/go-radx/internal/dcmio"
	"github.com/codeninja55/go-radx/internal/sig"
)

// parseFileResult is one file's outcome, mirroring
// original_source/backend/src/extract/worker.py's per-file result tuple.
type parseFileResult struct {
	payload InstancePayload
	skipped bool
	err     error
}

// parseSubjectFiles parses every accepted file under a subject directory
// using an internal bounded worker pool (spec §4.7 "parallel scandir with
// a bounded thread pool internal to the worker"). filesConcurrency caps
// in-flight file parses; skipped files due to the acceptance filter or
// resume-by-path are silently dropped, not errors (spec §7 "Instance-level
// data errors").
func (e *Engine) parseSubjectFiles(ctx context.Context, sf SubjectFolder) ([]InstancePayload, error) {
	files, err := discoverFiles(sf.Path, e.cfg.ExtensionMode)
	if err != nil {
		return nil, err
	}

	results := make([]parseFileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(1, e.cfg.SeriesWorkersPerSubj*4))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := e.jc.Checkpoint(gctx); err != nil {
				return err
			}
			results[i] = e.parseOneFile(sf, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	payloads := make([]InstancePayload, 0, len(files))
	for _, r := range results {
		if r.skipped || r.err != nil {
			continue
		}
		payloads = append(payloads, r.payload)
	}
	return payloads, nil
}

func (e *Engine) parseOneFile(sf SubjectFolder, path string) parseFileResult {
	if e.cfg.ResumeByPath && e.pathIndex != nil {
		if relative, err := filepath.Rel(sf.Path, path); err == nil {
			if e.pathIndex.ShouldSkip(sf.SubjectKey, filepath.ToSlash(relative)) {
				return parseFileResult{skipped: true}
			}
		}
	}

	var ds *dicom.DataSet
	var err error
	e.profiler.Time("dicom_parsing", func() {
		ds, err = dicom.ParseFile(path)
	})
	if err != nil {
		e.logDebug("skip unreadable file %s: %v", path, err)
		return parseFileResult{skipped: true}
	}

	ri, err := dcmio.ExtractRawInstance(ds, path)
	if err != nil {
		// Disallowed SOPClass/modality, missing UIDs: silently skipped
		// per spec §7 "Instance-level data errors".
		e.logDebug("skip %s: %v", path, err)
		return parseFileResult{skipped: true}
	}

	orientation := sig.CategorizeOrientation(ri.ImageOrientationPatient)
	signature := sig.ComputeSignature(ri, orientation.Orientation)

	resolution, err := e.resolver.Resolve(ri.PatientID, ri.PatientName, ri.StudyInstanceUID)
	if err != nil {
		e.logDebug("skip %s: subject resolution failed: %v", path, err)
		return parseFileResult{skipped: true}
	}

	return parseFileResult{payload: InstancePayload{
		Raw:        ri,
		Signature:  signature,
		SubjectKey: sf.SubjectKey,
		Subject:    resolution,
	}}
}

// batchPayloads groups payloads into fixed-size batches sized by the
// adaptive batch controller, clamped to ExtractionConfig bounds (spec §4.7
// "Batching").
func (e *Engine) batchPayloads(subjectKey string, payloads []InstancePayload) []Batch {
	if len(payloads) == 0 {
		return nil
	}
	size := e.batchCtl.CurrentSize()
	if size < 1 {
		size = e.cfg.BatchSize
	}
	var batches []Batch
	for start := 0; start < len(payloads); start += size {
		end := start + size
		if end > len(payloads) {
			end = len(payloads)
		}
		chunk := payloads[start:end]
		batches = append(batches, Batch{
			SubjectKey: subjectKey,
			Payloads:   chunk,
			LastSOPUID: chunk[len(chunk)-1].Raw.SOPInstanceUID,
		})
	}
	return batches
}

func (e *Engine) logDebug(format string, args ...any) {
	if e.logger != nil {
		e.logger.Debugf(format, args...)
	}
}
