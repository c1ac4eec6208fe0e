//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/codeninja55/go-radx/internal/config"
	"github.com/codeninja55/go-radx/internal/dcmio"
	"github.com/codeninja55/go-radx/internal/extract"
	"github.com/codeninja55/go-radx/internal/sig"
	"github.com/codeninja55/go-radx/internal/store"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("radx_test"),
		postgres.WithUsername("radx"),
		postgres.WithPassword("radx"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, store.Bootstrap(ctx, pool))
	return pool
}

func samplePayload(patientID, studyUID, seriesUID, sopUID string) extract.InstancePayload {
	ri := &dcmio.RawInstance{
		FilePath:          "/raw/SUBJ-001/" + sopUID + ".dcm",
		SOPInstanceUID:    sopUID,
		StudyInstanceUID:  studyUID,
		SeriesInstanceUID: seriesUID,
		Modality:          dcmio.ModalityMR,
		PatientID:         patientID,
		PatientName:       "Doe^Jane",
		SeriesDescription: "T1 MPRAGE",
		ImageOrientationPatient: []float64{1, 0, 0, 0, 1, 0},
	}
	orientation := sig.CategorizeOrientation(ri.ImageOrientationPatient)
	signature := sig.ComputeSignature(ri, orientation.Orientation)
	return extract.InstancePayload{
		Raw:        ri,
		Signature:  signature,
		SubjectKey: "SUBJ-001",
		Subject:    extract.SubjectResolution{SubjectCode: "CODE-" + patientID, PatientID: patientID, PatientName: ri.PatientName, Source: "hash"},
	}
}

func TestWriter_WriteBatch_InsertsFullEntityChain(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	cfg := config.DefaultExtractionConfig()
	cfg.CohortID = 1
	cfg.CohortName = "demo-cohort"
	cfg.RawRoot = "/raw"

	w, err := store.NewWriter(ctx, pool, cfg)
	require.NoError(t, err)

	batch := extract.Batch{
		SubjectKey: "SUBJ-001",
		Payloads: []extract.InstancePayload{
			samplePayload("PAT1", "1.2.3", "1.2.3.1", "1.2.3.1.1"),
			samplePayload("PAT1", "1.2.3", "1.2.3.1", "1.2.3.1.2"),
		},
		LastSOPUID: "1.2.3.1.2",
	}

	require.NoError(t, w.WriteBatch(ctx, 0, batch))

	metrics := w.Metrics()
	require.EqualValues(t, 1, metrics.Subjects)
	require.EqualValues(t, 1, metrics.Studies)
	require.EqualValues(t, 1, metrics.Series)
	require.EqualValues(t, 1, metrics.Stacks)
	require.EqualValues(t, 2, metrics.Instances)

	var instanceCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM instance`).Scan(&instanceCount))
	require.Equal(t, 2, instanceCount)
}

func TestWriter_WriteBatch_SkipDuplicatePolicyLogsConflict(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	cfg := config.DefaultExtractionConfig()
	cfg.CohortID = 1
	cfg.CohortName = "demo-cohort-2"
	cfg.RawRoot = "/raw"
	cfg.Resume = false

	w, err := store.NewWriter(ctx, pool, cfg)
	require.NoError(t, err)

	payload := samplePayload("PAT2", "2.2.3", "2.2.3.1", "2.2.3.1.1")
	batch := extract.Batch{SubjectKey: "SUBJ-002", Payloads: []extract.InstancePayload{payload}}
	require.NoError(t, w.WriteBatch(ctx, 0, batch))
	require.NoError(t, w.WriteBatch(ctx, 0, batch))

	var conflictCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM ingest_conflict WHERE scope = 'instance'`).Scan(&conflictCount))
	require.Equal(t, 1, conflictCount)
}
