package dlc

import (
	"fmt"
	"math"
	"sort"

	"github.com/danmuck/dectctl/internal/identity"
)

// Table indexes the connections of one cluster by MCEI and by MCI. Both
// indices always hold the same set of connections.
type Table struct {
	byMCEI map[uint32]*Connection
	byMCI  map[identity.MCI]*Connection
	limit  int
	next   uint32
}

// NewTable returns a table holding at most limit connections; limit <= 0
// only bounds it by the MCEI space.
func NewTable(limit int) *Table {
	if limit <= 0 || limit > math.MaxInt32 {
		limit = math.MaxInt32
	}
	return &Table{
		byMCEI: make(map[uint32]*Connection),
		byMCI:  make(map[identity.MCI]*Connection),
		limit:  limit,
	}
}

func (t *Table) Len() int {
	return len(t.byMCEI)
}

func (t *Table) Get(mcei uint32) (*Connection, bool) {
	c, ok := t.byMCEI[mcei]
	return c, ok
}

func (t *Table) GetMCI(mci identity.MCI) (*Connection, bool) {
	c, ok := t.byMCI[mci]
	return c, ok
}

// Insert registers a new CLOSED connection. A nil mcei allocates a fresh
// one. Nothing is registered when an error is returned.
func (t *Table) Insert(mci identity.MCI, mcei *uint32) (*Connection, error) {
	if err := mci.Validate(); err != nil {
		return nil, err
	}
	if t.Len() >= t.limit {
		return nil, fmt.Errorf("%w: %d connections", ErrExhausted, t.Len())
	}
	if _, ok := t.byMCI[mci]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateMCI, mci)
	}

	var id uint32
	if mcei != nil {
		id = *mcei
		if _, ok := t.byMCEI[id]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateMCEI, id)
		}
	} else {
		id = t.allocMCEI()
	}

	c := &Connection{mci: mci, mcei: id, state: StateClosed}
	t.byMCEI[id] = c
	t.byMCI[mci] = c
	return c, nil
}

// allocMCEI advances the counter past 0 and every id in use. The caller
// has checked that the table is not full, so a free id exists.
func (t *Table) allocMCEI() uint32 {
	for {
		t.next++
		if t.next == 0 {
			continue
		}
		if _, used := t.byMCEI[t.next]; !used {
			return t.next
		}
	}
}

// rekey moves c to a new MCEI, as when the MAC layer re-establishes a
// connection under its own id.
func (t *Table) rekey(c *Connection, mcei uint32) error {
	if c.mcei == mcei {
		return nil
	}
	if _, ok := t.byMCEI[mcei]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateMCEI, mcei)
	}
	delete(t.byMCEI, c.mcei)
	c.mcei = mcei
	t.byMCEI[mcei] = c
	return nil
}

func (t *Table) Remove(c *Connection) {
	if cur, ok := t.byMCEI[c.mcei]; ok && cur == c {
		delete(t.byMCEI, c.mcei)
	}
	if cur, ok := t.byMCI[c.mci]; ok && cur == c {
		delete(t.byMCI, c.mci)
	}
}

// Connections returns the registered connections ordered by MCEI.
func (t *Table) Connections() []*Connection {
	out := make([]*Connection, 0, len(t.byMCEI))
	for _, c := range t.byMCEI {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].mcei < out[j].mcei })
	return out
}
