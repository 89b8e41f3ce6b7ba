package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// OfferGroup holds the offers of one day in store order.
type OfferGroup struct {
	order []*Offer
	byID  map[string]*Offer
}

func NewOfferGroup() *OfferGroup {
	return &OfferGroup{byID: make(map[string]*Offer)}
}

// Put appends o, or replaces it in place when the ID is already present.
func (g *OfferGroup) Put(o *Offer) {
	if _, ok := g.byID[o.ID]; ok {
		for i, existing := range g.order {
			if existing.ID == o.ID {
				g.order[i] = o
				break
			}
		}
	} else {
		g.order = append(g.order, o)
	}
	g.byID[o.ID] = o
}

func (g *OfferGroup) Get(id string) (*Offer, bool) {
	o, ok := g.byID[id]
	return o, ok
}

func (g *OfferGroup) Len() int {
	return len(g.order)
}

func (g *OfferGroup) Offers() []*Offer {
	out := make([]*Offer, len(g.order))
	copy(out, g.order)
	return out
}

func (g *OfferGroup) IDs() []string {
	ids := make([]string, 0, len(g.order))
	for _, o := range g.order {
		ids = append(ids, o.ID)
	}
	return ids
}

// MarshalJSON encodes the group as an object keyed by offer ID, keeping
// insertion order.
func (g *OfferGroup) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, o := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(o.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// OfferIndex maps a date to the offers of that date.
type OfferIndex map[string]*OfferGroup

// GroupByDate builds an index from offers that are already sorted by
// (date, time).
func GroupByDate(offers []*Offer) OfferIndex {
	index := make(OfferIndex)
	for _, o := range offers {
		group, ok := index[o.Date]
		if !ok {
			group = NewOfferGroup()
			index[o.Date] = group
		}
		group.Put(o)
	}
	return index
}

func (idx OfferIndex) Dates() []string {
	dates := make([]string, 0, len(idx))
	for d := range idx {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

func (idx OfferIndex) Count() int {
	n := 0
	for _, g := range idx {
		n += g.Len()
	}
	return n
}

func (idx OfferIndex) Find(id string) (*Offer, bool) {
	for _, g := range idx {
		if o, ok := g.Get(id); ok {
			return o, true
		}
	}
	return nil, false
}
