package dashboard

import (
	"fmt"
	"sync"

	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// Row is a cached record plus its local sync state
type Row struct {
	Key       string
	Record    entity.Record
	Diverged  bool
	LastError string

	seq uint64
}

// Write identifies one in-flight write against a row
type Write struct {
	Key      string
	LetterNo string
	Seq      uint64
}

// View is a consistent snapshot of the cache for rendering
type View struct {
	Site     string
	Loaded   bool
	Rows     []Row
	Total    int
	Filtered bool
	Range    *DateRange
}

// Cache mirrors the Record API's list for one site. Local edits are applied
// optimistically and never rolled back; a failed write marks its row as
// diverged until a newer write succeeds or the list is reloaded.
type Cache struct {
	mu     sync.Mutex
	site   string
	loaded bool
	rows   []*Row
	index  map[string]int
	rng    *DateRange
	seq    uint64
}

// NewCache creates an empty, unloaded cache for site
func NewCache(site string) *Cache {
	return &Cache{
		site:  site,
		index: make(map[string]int),
	}
}

// Site returns the site this cache mirrors
func (c *Cache) Site() string {
	return c.site
}

// Loaded reports whether a fetch has succeeded since creation
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Replace swaps in a freshly fetched list, dropping all local sync state.
// The date range, if any, is kept.
func (c *Cache) Replace(records []entity.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows = make([]*Row, 0, len(records))
	c.index = make(map[string]int, len(records))
	for i, rec := range records {
		key := rec.ID.String()
		if _, dup := c.index[key]; key == "" || dup {
			key = fmt.Sprintf("row-%d", i+1)
		}
		c.index[key] = len(c.rows)
		c.rows = append(c.rows, &Row{Key: key, Record: rec})
	}
	c.loaded = true
}

// Snapshot returns the rows to display, filtered when a range is set
func (c *Cache) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Site:   c.site,
		Loaded: c.loaded,
		Total:  len(c.rows),
		Rows:   make([]Row, 0, len(c.rows)),
	}
	if c.rng != nil {
		r := *c.rng
		v.Range = &r
		v.Filtered = true
	}

	for _, row := range c.rows {
		if v.Filtered {
			day, err := row.Record.OpenedOn()
			if err != nil || !c.rng.Contains(day) {
				continue
			}
		}
		v.Rows = append(v.Rows, *row)
	}
	return v
}

// Records returns the unfiltered records in fetch order
func (c *Cache) Records() []entity.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]entity.Record, len(c.rows))
	for i, row := range c.rows {
		out[i] = row.Record
	}
	return out
}

// Get returns a copy of the row with the given key
func (c *Cache) Get(key string) (Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.lookup(key)
	if err != nil {
		return Row{}, err
	}
	return *row, nil
}

// SetStatus applies a status change locally and opens a write for it
func (c *Cache) SetStatus(key, status string) (Write, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.lookup(key)
	if err != nil {
		return Write{}, err
	}
	row.Record.Status = status
	return c.begin(row), nil
}

// EditComments changes the local comment fields without opening a write
func (c *Cache) EditComments(key, comments, givenBy string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.lookup(key)
	if err != nil {
		return err
	}
	row.Record.Comments = comments
	row.Record.CommentsGivenBy = givenBy
	return nil
}

// BeginCommentSend opens a write carrying the row's current comment fields.
// check sees exactly the values the write will carry; when it fails no
// write is opened.
func (c *Cache) BeginCommentSend(key string, check func(entity.Record) error) (Write, entity.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.lookup(key)
	if err != nil {
		return Write{}, entity.Record{}, err
	}
	if check != nil {
		if err := check(row.Record); err != nil {
			return Write{}, entity.Record{}, err
		}
	}
	return c.begin(row), row.Record, nil
}

// Complete records the outcome of w. It reports false, changing nothing,
// when a newer write for the same row has been opened since w.
func (c *Cache) Complete(w Write, writeErr error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, ok := c.current(w)
	if !ok {
		return false
	}
	if writeErr != nil {
		row.Diverged = true
		row.LastError = writeErr.Error()
	} else {
		row.Diverged = false
		row.LastError = ""
	}
	return true
}

// ClearComments empties the comment fields after a successful send. Comments
// edited after w was opened are left alone.
func (c *Cache) ClearComments(w Write, sent entity.Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, ok := c.current(w)
	if !ok {
		return false
	}
	if row.Record.Comments != sent.Comments || row.Record.CommentsGivenBy != sent.CommentsGivenBy {
		return false
	}
	row.Record.Comments = ""
	row.Record.CommentsGivenBy = ""
	return true
}

// SetRange filters the view to r
func (c *Cache) SetRange(r DateRange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rng = &r
}

// ClearRange removes the filter
func (c *Cache) ClearRange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rng = nil
}

// DivergedCount returns how many rows hold unsaved local values
func (c *Cache) DivergedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, row := range c.rows {
		if row.Diverged {
			n++
		}
	}
	return n
}

func (c *Cache) begin(row *Row) Write {
	c.seq++
	row.seq = c.seq
	return Write{Key: row.Key, LetterNo: row.Record.LetterNo, Seq: row.seq}
}

// current resolves the row of w if w is still its latest write. A reload
// between open and completion also makes w stale.
func (c *Cache) current(w Write) (*Row, bool) {
	i, ok := c.index[w.Key]
	if !ok {
		return nil, false
	}
	row := c.rows[i]
	if row.seq != w.Seq {
		return nil, false
	}
	return row, true
}

func (c *Cache) lookup(key string) (*Row, error) {
	i, ok := c.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrRecordNotFound, key)
	}
	return c.rows[i], nil
}
