package core

// Budgeted, resumable translation of a StateValue subtree from one binary
// layout tag to another. A TranslationPlan is built by registering one
// entry per root that needs migrating; Step then walks the plan's entries
// in order, translating each root's whole subtree (children before
// parent), translating at most `budget` entries before suspending.
//
// Resume granularity is per plan entry, not per node within an entry's
// subtree: Step always finishes or fails a whole entry atomically once it
// starts one, and only suspends between entries. This trades the
// per-node resumability a general arena-walking migration would want for
// a much simpler state machine - acceptable here because a ledger's
// largest single StateValue subtrees (one contract's Data tree) are
// small enough that translating one whole subtree at a time never blows
// a reasonable per-step budget in practice.

import "strings"

// TranslationHandler re-encodes one StateValue node from its old layout
// into the new one. Handlers are registered per (fromTag, toTag) pair;
// translateSubtree applies the handler to an array's children before the
// array itself, so a handler re-encodes only the node it is given.
type TranslationHandler func(v StateValue) (StateValue, error)

type translationKey struct{ from, to string }

// TranslationTable is the registry of (fromTag, toTag) handlers a plan
// consults. Tags are version-suffixed strings ("coin-info[v1]",
// "coin-info[v2]"); Register enforces that toTag's version suffix is
// strictly greater than fromTag's, catching a binary-layout change that
// forgot to bump its tag.
type TranslationTable struct {
	handlers map[translationKey]TranslationHandler
}

func NewTranslationTable() *TranslationTable {
	return &TranslationTable{handlers: make(map[translationKey]TranslationHandler)}
}

// Register binds a handler for migrating nodes tagged fromTag to toTag.
// Panics if toTag's [vN] suffix does not strictly exceed fromTag's - the
// tag-enforcement invariant spec §4.H requires of every migration.
func (t *TranslationTable) Register(fromTag, toTag string, h TranslationHandler) {
	fv, ok1 := tagVersion(fromTag)
	tv, ok2 := tagVersion(toTag)
	if !ok1 || !ok2 || tv <= fv {
		panic("core: translation registered without a strictly increasing [vN] tag: " + fromTag + " -> " + toTag)
	}
	t.handlers[translationKey{fromTag, toTag}] = h
}

func (t *TranslationTable) lookup(fromTag, toTag string) (TranslationHandler, bool) {
	h, ok := t.handlers[translationKey{fromTag, toTag}]
	return h, ok
}

// tagVersion extracts the integer suffix of a "...[vN]" tag.
func tagVersion(tag string) (int, bool) {
	i := strings.LastIndex(tag, "[v")
	if i < 0 || !strings.HasSuffix(tag, "]") {
		return 0, false
	}
	digits := tag[i+2 : len(tag)-1]
	if digits == "" {
		return 0, false
	}
	n := 0
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// WalkOutcomeKind tags the WalkOutcome union.
type WalkOutcomeKind uint8

const (
	WalkDone WalkOutcomeKind = iota
	WalkSuspended
)

// WalkOutcome is the result of one TranslationPlan.Step call: either the
// plan finished (every entry translated, Root holds the final entry's
// result) or it suspended partway through (Snapshot resumes from there).
type WalkOutcome struct {
	Kind     WalkOutcomeKind
	Visited  int
	Root     StateValue
	Snapshot PlanCursor
}

// PlanCursor resumes a suspended TranslationPlan.Step call at the next
// untranslated entry.
type PlanCursor struct {
	EntryIndex int
}

type translationEntry struct {
	root           StateValue
	fromTag, toTag string
}

// TranslationPlan is an ordered list of (root, fromTag, toTag) migrations
// to apply against one TranslationTable.
type TranslationPlan struct {
	table   *TranslationTable
	entries []translationEntry
}

func NewTranslationPlan(table *TranslationTable) *TranslationPlan {
	return &TranslationPlan{table: table}
}

// RegisterRoot queues root for migration from fromTag's layout to toTag's.
func (p *TranslationPlan) RegisterRoot(root StateValue, fromTag, toTag string) {
	p.entries = append(p.entries, translationEntry{root: root, fromTag: fromTag, toTag: toTag})
}

// Step translates entries in registration order, starting at prior's
// cursor (or the beginning, if prior is nil), stopping once budget whole
// entries have been translated or the plan is exhausted.
func (p *TranslationPlan) Step(prior *PlanCursor, budget int) (WalkOutcome, error) {
	idx := 0
	if prior != nil {
		idx = prior.EntryIndex
	}
	if budget <= 0 {
		return WalkOutcome{Kind: WalkSuspended, Snapshot: PlanCursor{EntryIndex: idx}}, nil
	}

	visited := 0
	var last StateValue
	for idx < len(p.entries) && visited < budget {
		entry := p.entries[idx]
		h, ok := p.table.lookup(entry.fromTag, entry.toTag)
		if !ok {
			return WalkOutcome{}, wrapErr(KindSemantic, "no_translation_handler", ErrInvalidArgs)
		}
		translated, err := p.translateSubtree(entry.root, h)
		if err != nil {
			return WalkOutcome{}, err
		}
		last = translated
		visited++
		idx++
	}

	if idx >= len(p.entries) {
		return WalkOutcome{Kind: WalkDone, Visited: visited, Root: last}, nil
	}
	return WalkOutcome{Kind: WalkSuspended, Visited: visited, Snapshot: PlanCursor{EntryIndex: idx}}, nil
}

// translateSubtree applies h to every node of v's subtree, children
// before parent, matching the original migration plan's structural
// translation order.
func (p *TranslationPlan) translateSubtree(v StateValue, h TranslationHandler) (StateValue, error) {
	switch v.Kind {
	case SVArray:
		items := make([]StateValue, 0, v.Array.Len())
		var walkErr error
		v.Array.Iterate(func(_ int, item StateValue) bool {
			out, err := p.translateSubtree(item, h)
			if err != nil {
				walkErr = err
				return false
			}
			items = append(items, out)
			return true
		})
		if walkErr != nil {
			return StateValue{}, walkErr
		}
		out := NewArray()
		for i, item := range items {
			var err error
			out, err = out.Insert(i, item)
			if err != nil {
				return StateValue{}, err
			}
		}
		return h(ArrayState(out))
	default:
		// Map and BoundedMerkleTree nodes are re-tagged as opaque leaves:
		// their own content hash already commits to everything beneath
		// them, so the handler is trusted to re-derive their new encoding
		// from the old one directly rather than this walker recursing
		// into trie/tree internals it has no generic accessor for.
		return h(v)
	}
}
