// Package store persists an in-progress sync session to disk: the saved
// original head, and the rollback/commit queues the revision state machine
// drains. It is the "journal" spec.md §9 asks for — an ordered queue with
// push-front/pop-front and atomic rewrite — kept as a small abstraction
// rather than scattering file I/O through the session controller.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind names one of the two revision queues.
type Kind string

const (
	Rollback Kind = "rollback"
	Commit   Kind = "commit"
)

const origHeadFile = "ORIG_HEAD"

// Store manages the on-disk session state under dir (the
// `<vcs_metadata_dir>/git-sync-world` session directory of spec.md §3).
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Exists reports whether a session is in progress: session_dir exists iff a
// session is in progress, per spec.md §3.
func (s *Store) Exists() (bool, error) {
	info, err := os.Stat(s.dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Begin creates the session directory.
func (s *Store) Begin() error {
	return os.MkdirAll(s.dir, 0o755)
}

// SaveOriginalHead writes the symbolic name of the head active when the
// session began.
func (s *Store) SaveOriginalHead(sym string) error {
	return s.atomicWriteFile(origHeadFile, sym+"\n")
}

// LoadOriginalHead reads back the value SaveOriginalHead wrote.
func (s *Store) LoadOriginalHead() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, origHeadFile))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// WriteQueue overwrites kind's file with revs, one per line. An empty revs
// still creates the (empty) file; PopFront treats an empty file and an
// absent one alike, returning ok == false for both.
func (s *Store) WriteQueue(kind Kind, revs []string) error {
	var b strings.Builder
	for _, r := range revs {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return s.atomicWriteFile(string(kind), b.String())
}

// PopFront atomically removes and returns the first line of kind's queue.
// Returns ok == false if the file is empty or absent, per spec.md §4.3 — this
// is the normal "queue drained" condition, not an error.
//
// The read-modify-rename sequence is not atomic as a whole (a crash between
// the read and the rename loses no information: the original file is
// untouched until the rename succeeds), which is exactly the crash-survival
// property spec.md §4.3 requires: a failure before rewrite leaves the file
// unchanged, so a later --continue observes the same front element.
func (s *Store) PopFront(kind Kind) (rev string, ok bool, err error) {
	lines, err := s.readLines(kind)
	if err != nil {
		return "", false, err
	}
	if len(lines) == 0 {
		return "", false, nil
	}
	rev = lines[0]
	if err := s.WriteQueue(kind, lines[1:]); err != nil {
		return "", false, err
	}
	return rev, true, nil
}

// PushFront re-prepends rev to kind's queue, used to restore a failing
// revision to the head of its queue.
func (s *Store) PushFront(kind Kind, rev string) error {
	lines, err := s.readLines(kind)
	if err != nil {
		return err
	}
	return s.WriteQueue(kind, append([]string{rev}, lines...))
}

// Destroy removes ORIG_HEAD, both queue files, then the now-empty session
// directory.
func (s *Store) Destroy() error {
	for _, name := range []string{origHeadFile, string(Rollback), string(Commit)} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Remove(s.dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session directory: %w", err)
	}
	return nil
}

func (s *Store) readLines(kind Kind) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, string(kind)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// atomicWriteFile writes content to name under the session directory via a
// temp-file-then-rename, the standard same-filesystem atomic rewrite idiom.
func (s *Store) atomicWriteFile(name, content string) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
