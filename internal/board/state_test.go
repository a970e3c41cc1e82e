package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(pathID, userID string, x, y float64) *Fragment {
	return &Fragment{
		PathID: pathID,
		UserID: userID,
		Point:  &Point{XN: x, YN: y, T: 1000},
	}
}

func TestAppendLivePointAccumulatesInOrder(t *testing.T) {
	s := NewState()

	for i := 0; i < 5; i++ {
		s.AppendLivePoint(frag("p1", "u1", float64(i)/10, 0.5))
	}

	path := s.CommitPath("p1")
	require.NotNil(t, path)
	require.Len(t, path.Points, 5)
	for i, pt := range path.Points {
		assert.Equal(t, float64(i)/10, pt.XN)
	}
}

func TestAppendLivePointNormalizesDefaultsOnce(t *testing.T) {
	s := NewState()

	s.AppendLivePoint(frag("p1", "u1", 0.1, 0.1))

	// Metadata on later fragments must not change the path's identity.
	second := frag("p1", "u1", 0.2, 0.2)
	second.Tool = ToolEraser
	second.Color = "#ff0000"
	s.AppendLivePoint(second)

	path := s.CommitPath("p1")
	require.NotNil(t, path)
	assert.Equal(t, ToolBrush, path.Tool)
	assert.Equal(t, DefaultColor, path.Color)
	assert.Equal(t, DefaultOpacity, path.Opacity)
	assert.Len(t, path.Points, 2)
}

func TestAppendLivePointKeepsExplicitMetadata(t *testing.T) {
	s := NewState()

	opacity := 0.25
	f := frag("p1", "u1", 0.1, 0.1)
	f.Tool = ToolEraser
	f.Color = "#00ff00"
	f.Opacity = &opacity
	f.WidthN = 0.01
	s.AppendLivePoint(f)

	path := s.CommitPath("p1")
	require.NotNil(t, path)
	assert.Equal(t, ToolEraser, path.Tool)
	assert.Equal(t, "#00ff00", path.Color)
	assert.Equal(t, 0.25, path.Opacity)
	assert.Equal(t, 0.01, path.WidthN)
}

func TestAppendLivePointIgnoresMalformedFragments(t *testing.T) {
	s := NewState()

	s.AppendLivePoint(nil)
	s.AppendLivePoint(&Fragment{PathID: "p1"})                             // no point
	s.AppendLivePoint(&Fragment{Point: &Point{XN: 0.5, YN: 0.5, T: 1000}}) // no path id

	assert.Equal(t, 0, s.LiveCount())
	assert.Nil(t, s.CommitPath("p1"))
}

func TestCommitUnknownOrEmptyPathIsNil(t *testing.T) {
	s := NewState()

	assert.Nil(t, s.CommitPath(""))
	assert.Nil(t, s.CommitPath("never-drawn"))
	assert.Empty(t, s.Serialize())
}

func TestCommitIsExactlyOnce(t *testing.T) {
	s := NewState()

	s.AppendLivePoint(frag("p1", "u1", 0.1, 0.1))
	require.NotNil(t, s.CommitPath("p1"))

	// Duplicate or late commit requests are a legitimate no-op.
	assert.Nil(t, s.CommitPath("p1"))
	assert.Len(t, s.Serialize(), 1)
}

func TestCommitOrderMatchesCallOrder(t *testing.T) {
	s := NewState()

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		s.AppendLivePoint(frag(id, "u1", 0.5, 0.5))
		require.NotNil(t, s.CommitPath(id))
	}

	committed := s.Serialize()
	require.Len(t, committed, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, committed[i].ID)
	}
}

func TestCommitClearsRedoStack(t *testing.T) {
	s := NewState()

	s.AppendLivePoint(frag("p1", "u1", 0.1, 0.1))
	require.NotNil(t, s.CommitPath("p1"))
	require.NotNil(t, s.Undo())
	require.Equal(t, 1, s.RedoDepth())

	s.AppendLivePoint(frag("p2", "u1", 0.2, 0.2))
	require.NotNil(t, s.CommitPath("p2"))

	assert.Equal(t, 0, s.RedoDepth())
	assert.Nil(t, s.Redo())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	s := NewState()

	s.AppendLivePoint(frag("p1", "u1", 0.1, 0.1))
	committed := s.CommitPath("p1")
	require.NotNil(t, committed)

	undone := s.Undo()
	require.Same(t, committed, undone)
	assert.Empty(t, s.Serialize())
	assert.Equal(t, 1, s.RedoDepth())

	redone := s.Redo()
	require.Same(t, committed, redone)
	require.Len(t, s.Serialize(), 1)
	assert.Same(t, committed, s.Serialize()[0])
	assert.Equal(t, 0, s.RedoDepth())
}

func TestUndoOnEmptyHistory(t *testing.T) {
	s := NewState()

	assert.Nil(t, s.Undo())
	assert.Equal(t, 0, s.RedoDepth())
}

func TestRedoOnEmptyStack(t *testing.T) {
	s := NewState()

	s.AppendLivePoint(frag("p1", "u1", 0.1, 0.1))
	require.NotNil(t, s.CommitPath("p1"))

	assert.Nil(t, s.Redo())
	assert.Len(t, s.Serialize(), 1)
}

func TestUndoPeelsFromTheTail(t *testing.T) {
	s := NewState()

	for _, id := range []string{"a", "b", "c"} {
		s.AppendLivePoint(frag(id, "u1", 0.5, 0.5))
		require.NotNil(t, s.CommitPath(id))
	}

	assert.Equal(t, "c", s.Undo().ID)
	assert.Equal(t, "b", s.Undo().ID)

	committed := s.Serialize()
	require.Len(t, committed, 1)
	assert.Equal(t, "a", committed[0].ID)

	// Redo restores most-recently-undone first.
	assert.Equal(t, "b", s.Redo().ID)
	assert.Equal(t, "c", s.Redo().ID)
}

func TestSerializeIsStableSnapshot(t *testing.T) {
	s := NewState()

	s.AppendLivePoint(frag("p1", "u1", 0.1, 0.1))
	require.NotNil(t, s.CommitPath("p1"))

	snapshot := s.Serialize()
	require.Len(t, snapshot, 1)

	// Later mutation must not show up in an already-taken snapshot.
	require.NotNil(t, s.Undo())
	assert.Len(t, snapshot, 1)
	assert.Empty(t, s.Serialize())
}

func TestLivePathsExcludedFromSnapshot(t *testing.T) {
	s := NewState()

	s.AppendLivePoint(frag("p1", "u1", 0.1, 0.1))

	assert.Empty(t, s.Serialize())
	assert.Equal(t, 1, s.LiveCount())
}
