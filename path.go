package flattenjson

import "strconv"

// Step is one element of a path through a record: either a Key (object
// member) or an Index (array position).
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeyStep builds an object-member step.
func KeyStep(key string) Step {
	return Step{Key: key}
}

// IndexStep builds an array-position step.
func IndexStep(i int) Step {
	return Step{Index: i, IsIndex: true}
}

// String renders the step as it appears in a full-path link value: the
// key verbatim, or the index in decimal.
func (s Step) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is an ordered sequence of steps identifying one specific subtree
// occurrence (a "full path" per spec) when it mixes keys and indices, or
// a table ("no-index path") when it carries only keys.
type Path []Step

// WithKey returns a new Path with a Key step appended; the receiver is
// left unmodified.
func (p Path) WithKey(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, KeyStep(key))
}

// WithIndex returns a new Path with an Index step appended; the receiver
// is left unmodified.
func (p Path) WithIndex(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, IndexStep(i))
}

// FullJoin renders the full path (keys and indices) joined with ".", used
// to build link column values.
func (p Path) FullJoin() string {
	return joinSteps(p, ".")
}

func joinSteps(p Path, sep string) string {
	if len(p) == 0 {
		return ""
	}
	out := p[0].String()
	for _, s := range p[1:] {
		out += sep + s.String()
	}
	return out
}

// NoIndexPath is an ordered sequence of object-member keys identifying a
// table: the "no-index path" projection of a Path, with array indices
// dropped.
type NoIndexPath []string

// WithKey returns a new NoIndexPath with a key appended; the receiver is
// left unmodified.
func (p NoIndexPath) WithKey(key string) NoIndexPath {
	out := make(NoIndexPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// Join renders the no-index path joined with "_", used to name tables and
// link columns. The empty path renders as "".
func (p NoIndexPath) Join() string {
	if len(p) == 0 {
		return ""
	}
	out := p[0]
	for _, k := range p[1:] {
		out += "_" + k
	}
	return out
}

// Equal reports whether two no-index paths have identical keys in the
// same order.
func (p NoIndexPath) Equal(other NoIndexPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// emitPathSet holds the configured no-index paths whose object subtrees
// should be emitted as their own table rather than promoted into their
// parent.
type emitPathSet []NoIndexPath

// Contains reports whether p matches one of the configured emit paths.
func (s emitPathSet) Contains(p NoIndexPath) bool {
	for _, candidate := range s {
		if candidate.Equal(p) {
			return true
		}
	}
	return false
}
