package feature

// Collection is an insertion-ordered set of features indexed by id.
type Collection struct {
	order []string
	byID  map[string]*Feature
}

// NewCollection creates a collection holding features in the given order.
// Later duplicates of an id replace earlier ones.
func NewCollection(features []*Feature) *Collection {
	c := &Collection{byID: make(map[string]*Feature, len(features))}
	for _, f := range features {
		c.Add(f)
	}
	return c
}

// Add appends f, or replaces the existing feature with the same id in place.
func (c *Collection) Add(f *Feature) {
	if _, ok := c.byID[f.ID]; !ok {
		c.order = append(c.order, f.ID)
	}
	c.byID[f.ID] = f
}

// Get returns the feature with the given id.
func (c *Collection) Get(id string) (*Feature, bool) {
	f, ok := c.byID[id]
	return f, ok
}

// Remove drops the feature with the given id. It reports whether it existed.
func (c *Collection) Remove(id string) bool {
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Rename moves the feature stored under oldID to newID, keeping its position.
func (c *Collection) Rename(oldID, newID string) bool {
	f, ok := c.byID[oldID]
	if !ok || oldID == newID {
		return ok
	}
	if _, taken := c.byID[newID]; taken {
		return false
	}
	delete(c.byID, oldID)
	f.ID = newID
	c.byID[newID] = f
	for i, oid := range c.order {
		if oid == oldID {
			c.order[i] = newID
			break
		}
	}
	return true
}

// All returns the features in insertion order.
func (c *Collection) All() []*Feature {
	out := make([]*Feature, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of features.
func (c *Collection) Len() int {
	return len(c.order)
}
