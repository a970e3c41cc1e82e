package board

import "sync"

// State is the authoritative drawing state of a single room: the ordered
// committed history, the redo stack and the in-progress (live) paths keyed by
// path id. A path id is in at most one of live/committed at a time.
//
// Handlers normally run one at a time on the hub goroutine, but REST reads
// and the Redis bus touch rooms from other goroutines, so every operation
// takes the state mutex.
type State struct {
	mu        sync.Mutex
	committed []*Path
	undone    []*Path
	live      map[string]*Path
}

func NewState() *State {
	return &State{
		committed: make([]*Path, 0),
		undone:    make([]*Path, 0),
		live:      make(map[string]*Path),
	}
}

// AppendLivePoint accumulates one fragment into the live path for its id,
// creating the path from the fragment's metadata on first sight. Malformed
// fragments are dropped silently; a misbehaving connection must never be able
// to corrupt the room.
func (s *State) AppendLivePoint(f *Fragment) {
	if !f.Valid() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.live[f.PathID]
	if !ok {
		path = newLivePath(f)
		s.live[f.PathID] = path
	}
	path.Points = append(path.Points, *f.Point)
}

// CommitPath finalizes the live path with the given id, moving it to the
// committed history. Returns nil without mutating anything when the path is
// unknown or empty, which covers duplicate commits, stale references and
// disconnect races. A successful commit clears the redo stack: redo history
// is only valid against an unbroken chain of undos.
func (s *State) CommitPath(pathID string) *Path {
	if pathID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.live[pathID]
	if !ok || len(path.Points) == 0 {
		return nil
	}

	delete(s.live, pathID)
	s.undone = s.undone[:0]
	s.committed = append(s.committed, path)
	return path
}

// Undo removes the most recently committed path and parks it on the redo
// stack. Returns nil when there is nothing to undo.
func (s *State) Undo() *Path {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.committed) == 0 {
		return nil
	}
	path := s.committed[len(s.committed)-1]
	s.committed = s.committed[:len(s.committed)-1]
	s.undone = append(s.undone, path)
	return path
}

// Redo re-appends the most recently undone path to the committed history.
// Returns nil when the redo stack is empty.
func (s *State) Redo() *Path {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undone) == 0 {
		return nil
	}
	path := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	s.committed = append(s.committed, path)
	return path
}

// Serialize returns the full ordered committed history as a fresh slice.
// Committed paths are no longer mutated once they leave the live map, so the
// snapshot is safe to hand to encoders on other goroutines.
func (s *State) Serialize() []*Path {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]*Path, len(s.committed))
	copy(paths, s.committed)
	return paths
}

// RedoDepth reports how many undone paths are available for redo.
func (s *State) RedoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undone)
}

// LiveCount reports how many paths are currently being drawn.
func (s *State) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}
