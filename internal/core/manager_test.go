package core

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/displayctl/internal/backend"
	"github.com/jmylchreest/displayctl/internal/identity"
	"github.com/jmylchreest/displayctl/internal/model"
	"github.com/jmylchreest/displayctl/internal/store"
	"github.com/jmylchreest/displayctl/internal/txn"
)

const (
	uuidA = "AAAAAAAA-0000-4000-8000-000000000001"
	uuidB = "BBBBBBBB-0000-4000-8000-000000000002"
	uuidC = "CCCCCCCC-0000-4000-8000-000000000003"
)

// threeDisplays has A and B connected; C is known but unplugged.
func threeDisplays() []backend.SimDisplay {
	return []backend.SimDisplay{
		{Handle: 1, UUID: uuidA, Main: true, Enabled: true, Connected: true},
		{Handle: 2, UUID: uuidB, Enabled: false, Connected: true},
		{Handle: 3, UUID: uuidC, Enabled: false, Connected: false},
	}
}

func newTestManager(displays []backend.SimDisplay, ids ...model.StableID) (*Manager, *backend.Sim, *store.MemoryPersistence) {
	sim := backend.NewSim(displays, nil)
	st := store.NewMemoryPersistence(ids...)
	return NewManager(sim, identity.NewResolver(sim, nil), st), sim, st
}

func TestDisableOne_RecordsStableID(t *testing.T) {
	m, sim, st := newTestManager(backend.DefaultSimDisplays())

	result, err := m.DisableOne(2)
	require.NoError(t, err)

	assert.Equal(t, model.Handle(2), result.Handle)
	assert.Equal(t, model.StableID("E5D1A4C0-8B3E-4F6A-9C2D-1F0B7A6E5D4C"), result.ID)
	assert.False(t, sim.Enabled(2))
	assert.Equal(t, []model.StableID{result.ID}, st.Load())
}

func TestDisableOne_FallbackIDWithoutUUID(t *testing.T) {
	m, _, st := newTestManager([]backend.SimDisplay{
		{Handle: 1, Enabled: true, Connected: true, Main: true},
		{Handle: 724, Enabled: true, Connected: true},
	})

	result, err := m.DisableOne(724)
	require.NoError(t, err)
	assert.Equal(t, model.StableID("DISPLAY_ID_724"), result.ID)
	assert.Equal(t, []model.StableID{"DISPLAY_ID_724"}, st.Load())
}

func TestDisableOne_Twice(t *testing.T) {
	m, sim, st := newTestManager(backend.DefaultSimDisplays())

	first, err := m.DisableOne(2)
	require.NoError(t, err)
	second, err := m.DisableOne(2)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, sim.Enabled(2))
	assert.Contains(t, st.Load(), first.ID)
	assert.Len(t, st.Load(), 2)
}

func TestDisableOne_BeginFailure(t *testing.T) {
	m, sim, st := newTestManager(backend.DefaultSimDisplays())
	sim.BeginStatus = txn.StatusCannotComplete

	_, err := m.DisableOne(2)
	assert.ErrorIs(t, err, txn.ErrBeginFailed)
	assert.True(t, sim.Enabled(2))
	assert.Empty(t, st.Load())
}

func TestDisableOne_ToggleFailure(t *testing.T) {
	m, sim, st := newTestManager(backend.DefaultSimDisplays())
	sim.ToggleStatus[2] = txn.StatusIllegalArgument

	_, err := m.DisableOne(2)
	assert.ErrorIs(t, err, txn.ErrToggleFailed)
	assert.True(t, sim.Enabled(2))
	assert.Empty(t, st.Load())

	// The envelope was closed, so the next operation can begin.
	delete(sim.ToggleStatus, 2)
	_, err = m.DisableOne(2)
	require.NoError(t, err)
}

func TestDisableOne_CommitFailure(t *testing.T) {
	m, sim, st := newTestManager(backend.DefaultSimDisplays())
	sim.CompleteStatus = txn.StatusFailure

	_, err := m.DisableOne(2)
	assert.ErrorIs(t, err, txn.ErrCommitFailed)
	assert.Empty(t, st.Load())
}

func TestDisableOne_StoreFailure(t *testing.T) {
	m, sim, st := newTestManager(backend.DefaultSimDisplays())
	st.AppendErr = errors.New("read-only filesystem")

	result, err := m.DisableOne(2)
	assert.ErrorIs(t, err, ErrStoreInconsistent)
	assert.ErrorIs(t, err, st.AppendErr)
	assert.NotEmpty(t, result.ID)
	assert.False(t, sim.Enabled(2), "the display was still disabled")
}

func TestDisableOne_RejectsWhileBusy(t *testing.T) {
	m, _, _ := newTestManager(backend.DefaultSimDisplays())
	m.busy = true

	_, err := m.DisableOne(2)
	assert.ErrorIs(t, err, ErrTransactionOpen)

	_, err = m.RestoreAll()
	assert.ErrorIs(t, err, ErrTransactionOpen)
}

func TestRestoreAll_EmptyStore(t *testing.T) {
	m, sim, st := newTestManager(backend.DefaultSimDisplays())
	sim.BeginStatus = txn.StatusFailure // no transaction is opened

	report, err := m.RestoreAll()
	require.NoError(t, err)
	assert.Empty(t, report.Candidates)
	assert.False(t, report.Changed())
	assert.Empty(t, st.Load())
}

func TestRestoreAll_SkipsUnresolvable(t *testing.T) {
	displays := threeDisplays()
	displays[0].Enabled = false
	m, sim, st := newTestManager(displays, uuidA, uuidB, uuidC)

	report, err := m.RestoreAll()
	require.NoError(t, err)

	assert.True(t, sim.Enabled(1))
	assert.True(t, sim.Enabled(2))
	assert.Equal(t, []model.StableID{uuidA, uuidB}, report.Restored)
	assert.Equal(t, []model.StableID{uuidC}, report.Unresolved)
	assert.Equal(t, []model.StableID{uuidC}, report.Remaining)
	assert.Equal(t, []model.StableID{uuidC}, st.Load())
}

func TestRestoreAll_PreservesOrderAndDuplicatesOfFailures(t *testing.T) {
	m, sim, st := newTestManager(threeDisplays(), uuidC, uuidB, uuidC, uuidB, "garbage", uuidC)

	report, err := m.RestoreAll()
	require.NoError(t, err)

	assert.True(t, sim.Enabled(2))
	assert.Equal(t, []model.StableID{uuidC, uuidB, "garbage"}, report.Candidates)
	assert.Equal(t, []model.StableID{uuidC, "garbage"}, report.Unresolved)
	assert.Equal(t, []model.StableID{uuidC, uuidC, "garbage", uuidC}, st.Load())
}

func TestRestoreAll_CommitFailureKeepsStore(t *testing.T) {
	m, sim, st := newTestManager(threeDisplays(), uuidA, uuidB)
	sim.CompleteStatus = txn.StatusFailure

	report, err := m.RestoreAll()
	require.NoError(t, err)

	assert.ErrorIs(t, report.CommitErr, txn.ErrCommitFailed)
	assert.Empty(t, report.Restored)
	assert.Len(t, report.Failed, 2)
	assert.Equal(t, []model.StableID{uuidA, uuidB}, report.Remaining)
	assert.Equal(t, []model.StableID{uuidA, uuidB}, st.Load())
}

func TestRestoreAll_CommitFailureLogsAppliedHandles(t *testing.T) {
	var logs bytes.Buffer
	displays := threeDisplays()
	displays[0].Enabled = false
	sim := backend.NewSim(displays, nil)
	sim.ToggleStatus[1] = txn.StatusRangeCheck
	sim.CompleteStatus = txn.StatusFailure
	m := NewManager(sim, identity.NewResolver(sim, nil), store.NewMemoryPersistence(uuidA, uuidB),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	report, err := m.RestoreAll()
	require.NoError(t, err)
	require.Error(t, report.CommitErr)

	assert.Contains(t, logs.String(), "restore commit failed")
	assert.Contains(t, logs.String(), "handles=[2]")
}

func TestRestoreAll_PerItemToggleFailure(t *testing.T) {
	displays := threeDisplays()
	displays[0].Enabled = false
	m, sim, st := newTestManager(displays, uuidA, uuidB)
	sim.ToggleStatus[1] = txn.StatusRangeCheck

	report, err := m.RestoreAll()
	require.NoError(t, err)

	require.Len(t, report.Failed, 1)
	assert.Equal(t, model.StableID(uuidA), report.Failed[0].ID)
	assert.ErrorIs(t, report.Failed[0].Err, txn.ErrToggleFailed)
	assert.Equal(t, []model.StableID{uuidB}, report.Restored)
	assert.False(t, sim.Enabled(1))
	assert.True(t, sim.Enabled(2))
	assert.Equal(t, []model.StableID{uuidA}, st.Load())
}

func TestRestoreAll_BeginFailure(t *testing.T) {
	m, sim, st := newTestManager(threeDisplays(), uuidB)
	sim.BeginStatus = txn.StatusFailure

	_, err := m.RestoreAll()
	assert.ErrorIs(t, err, txn.ErrBeginFailed)
	assert.False(t, sim.Enabled(2))
	assert.Equal(t, []model.StableID{uuidB}, st.Load())
}

func TestRestoreAll_RewriteFailure(t *testing.T) {
	m, sim, st := newTestManager(threeDisplays(), uuidB)
	st.RewriteErr = errors.New("disk full")

	report, err := m.RestoreAll()
	assert.ErrorIs(t, err, ErrStoreInconsistent)
	assert.True(t, sim.Enabled(2))
	assert.Equal(t, []model.StableID{uuidB}, report.Restored)
	assert.Equal(t, []model.StableID{uuidB}, st.Load(), "record is stale")
}

func TestRestoreAll_FallbackIDUsedVerbatim(t *testing.T) {
	m, sim, st := newTestManager([]backend.SimDisplay{
		{Handle: 1, Enabled: true, Connected: true, Main: true},
		{Handle: 724, Enabled: false, Connected: true},
	}, "DISPLAY_ID_724", "DISPLAY_ID_9999")

	report, err := m.RestoreAll()
	require.NoError(t, err)

	assert.True(t, sim.Enabled(724))
	assert.Equal(t, []model.StableID{"DISPLAY_ID_724"}, report.Restored)
	// The stale fallback id resolves but the capability rejects the handle.
	require.Len(t, report.Failed, 1)
	assert.Equal(t, model.StableID("DISPLAY_ID_9999"), report.Failed[0].ID)
	assert.Equal(t, []model.StableID{"DISPLAY_ID_9999"}, st.Load())
}

func TestDisableThenRestore_EndToEnd(t *testing.T) {
	m, sim, st := newTestManager(backend.DefaultSimDisplays())

	_, err := m.DisableOne(2)
	require.NoError(t, err)
	require.Len(t, st.Load(), 1)

	displays, err := sim.Displays()
	require.NoError(t, err)
	assert.Len(t, displays, 1)

	report, err := m.RestoreAll()
	require.NoError(t, err)
	assert.True(t, report.Changed())
	assert.Empty(t, st.Load())
	assert.True(t, sim.Enabled(2))
}

func TestNewManager_Options(t *testing.T) {
	sim := backend.NewSim(backend.DefaultSimDisplays(), nil)
	m := NewManager(sim, identity.NewResolver(sim, nil), store.NewMemoryPersistence(),
		WithPermanent(false), WithLogger(nil))

	assert.False(t, m.permanent)
	assert.NotNil(t, m.logger)
}
