package vcs

// FakeRepository is an in-memory Repository backed by a caller-supplied
// commit graph (revision id -> parent id, "" for a root commit). It exists
// so the planner and the revision state machine can be exercised against
// arbitrary graph shapes — including the branch-crossover topology — without
// spinning up a real git repository, the way a VCS adapter interface is
// meant to be used in tests.
type FakeRepository struct {
	Parents map[string]string // revision id -> parent id, "" means root
	Root    string
	Head    string
	Symbol  string
	Clean   bool
	Checkouts []string

	// FailCheckoutRef, if set, makes Checkout fail only when called with
	// that exact ref, letting tests fail one specific checkout (e.g. the
	// HEAD^ step inside a rollback) without breaking the initial checkout.
	FailCheckoutRef string
	CheckoutErr     error
	IsCleanErr      error
}

func NewFakeRepository(parents map[string]string, head string) *FakeRepository {
	return &FakeRepository{
		Parents: parents,
		Root:    "/fake/root",
		Head:    head,
		Symbol:  head,
		Clean:   true,
	}
}

func (f *FakeRepository) RootDir() (string, error) { return f.Root, nil }

func (f *FakeRepository) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", ErrNotFound
	}
	if _, ok := f.Parents[ref]; !ok && ref != f.Head {
		return "", ErrNotFound
	}
	return ref, nil
}

func (f *FakeRepository) HeadRevision() (string, error) { return f.Head, nil }
func (f *FakeRepository) SymbolicHead() (string, error) { return f.Symbol, nil }

func (f *FakeRepository) Checkout(ref string) error {
	if f.CheckoutErr != nil && (f.FailCheckoutRef == "" || f.FailCheckoutRef == ref) {
		return f.CheckoutErr
	}
	f.Checkouts = append(f.Checkouts, ref)
	f.Head = ref
	f.Symbol = ref
	return nil
}

func (f *FakeRepository) IsClean() (bool, error) {
	if f.IsCleanErr != nil {
		return false, f.IsCleanErr
	}
	return f.Clean, nil
}

func (f *FakeRepository) IsRootCommit() (bool, error) {
	parent, ok := f.Parents[f.Head]
	if !ok {
		return false, &Error{Op: "is-root-commit", Err: ErrNotFound}
	}
	return parent == "", nil
}

func (f *FakeRepository) ancestorsOrSelf(start string) []string {
	var chain []string
	cur := start
	for {
		if _, ok := f.Parents[cur]; !ok {
			break
		}
		chain = append(chain, cur)
		parent := f.Parents[cur]
		if parent == "" {
			break
		}
		cur = parent
	}
	return chain
}

func (f *FakeRepository) AncestorsExcluding(from, to string) ([]string, error) {
	excludeSet := make(map[string]bool)
	for _, id := range f.ancestorsOrSelf(to) {
		excludeSet[id] = true
	}
	var result []string
	for _, id := range f.ancestorsOrSelf(from) {
		if excludeSet[id] {
			break
		}
		result = append(result, id)
	}
	return result, nil
}

func (f *FakeRepository) AncestorsExcludingReverse(from, to string) ([]string, error) {
	forward, err := f.AncestorsExcluding(from, to)
	if err != nil {
		return nil, err
	}
	reversed := make([]string, len(forward))
	for i, id := range forward {
		reversed[len(forward)-1-i] = id
	}
	return reversed, nil
}

func (f *FakeRepository) FullHistoryOldestFirst(to string) ([]string, error) {
	forward := f.ancestorsOrSelf(to)
	reversed := make([]string, len(forward))
	for i, id := range forward {
		reversed[len(forward)-1-i] = id
	}
	return reversed, nil
}

func (f *FakeRepository) MergeBase(a, b string) (string, error) {
	aSet := make(map[string]bool)
	for _, id := range f.ancestorsOrSelf(a) {
		aSet[id] = true
	}
	for _, id := range f.ancestorsOrSelf(b) {
		if aSet[id] {
			return id, nil
		}
	}
	return "", &Error{Op: "merge-base", Err: ErrNotFound}
}
