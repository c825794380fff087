package rewards

// Reward is one catalog entry
type Reward struct {
	MissionID string
	Name      string
	// Requires names the reward that must be claimed first
	Requires      string
	ProgressBased bool
}

// Catalog is the ordered set of rewards the engine knows about
type Catalog struct {
	entries []Reward
	byID    map[string]Reward
}

// DefaultCatalog returns the stock reward catalog: daily, hourly and the
// 7/14/21/28 day streak chain.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Reward{
		{MissionID: "1", Name: "每日"},
		{MissionID: "19", Name: "每小时", ProgressBased: true},
		{MissionID: "15", Name: "7天"},
		{MissionID: "16", Name: "14天", Requires: "7天"},
		{MissionID: "17", Name: "21天", Requires: "14天"},
		{MissionID: "18", Name: "28天", Requires: "21天"},
	})
}

// NewCatalog builds a catalog; later entries replace earlier ones with
// the same mission id.
func NewCatalog(entries []Reward) *Catalog {
	c := &Catalog{byID: make(map[string]Reward, len(entries))}
	for _, e := range entries {
		if _, exists := c.byID[e.MissionID]; !exists {
			c.entries = append(c.entries, e)
		} else {
			for i := range c.entries {
				if c.entries[i].MissionID == e.MissionID {
					c.entries[i] = e
				}
			}
		}
		c.byID[e.MissionID] = e
	}
	return c
}

// Lookup finds a reward by mission id
func (c *Catalog) Lookup(missionID string) (Reward, bool) {
	r, ok := c.byID[missionID]
	return r, ok
}

// Entries returns the catalog in order
func (c *Catalog) Entries() []Reward {
	return append([]Reward(nil), c.entries...)
}
