package roster

import "fmt"

// IdentityMap is a bijection between staff emails and stable array indices.
// Indices are handed out in arrival order and are never reused or removed.
type IdentityMap struct {
	forward map[string]int
	inverse []string
}

func NewIdentityMap() *IdentityMap {
	return &IdentityMap{forward: make(map[string]int)}
}

// IdentityMapFromOrder rebuilds a map from emails listed by index.
func IdentityMapFromOrder(emails []string) (*IdentityMap, error) {
	m := NewIdentityMap()
	for _, email := range emails {
		if _, err := m.Assign(email); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Assign gives email the next free index.
func (m *IdentityMap) Assign(email string) (int, error) {
	if _, ok := m.forward[email]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateIdentity, email)
	}
	idx := len(m.inverse)
	m.forward[email] = idx
	m.inverse = append(m.inverse, email)
	return idx, nil
}

func (m *IdentityMap) Index(email string) (int, bool) {
	idx, ok := m.forward[email]
	return idx, ok
}

func (m *IdentityMap) Email(idx int) (string, bool) {
	if idx < 0 || idx >= len(m.inverse) {
		return "", false
	}
	return m.inverse[idx], true
}

func (m *IdentityMap) Len() int { return len(m.inverse) }

// Order returns the emails by index.
func (m *IdentityMap) Order() []string {
	return append([]string(nil), m.inverse...)
}

func (m *IdentityMap) Clone() *IdentityMap {
	c := &IdentityMap{
		forward: make(map[string]int, len(m.forward)),
		inverse: append([]string(nil), m.inverse...),
	}
	for k, v := range m.forward {
		c.forward[k] = v
	}
	return c
}

// ConsistentWith reports the first email both maps know under different indices.
func (m *IdentityMap) ConsistentWith(other *IdentityMap) error {
	for email, idx := range m.forward {
		otherIdx, ok := other.forward[email]
		if !ok {
			continue
		}
		if otherIdx != idx {
			return fmt.Errorf("%w: %s is %d in one state and %d in another", ErrIdentityMismatch, email, idx, otherIdx)
		}
	}
	return nil
}
