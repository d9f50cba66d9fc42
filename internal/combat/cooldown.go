package combat

// PairCooldown is the minimum time between two damage-eligible contacts of
// the same pair, in milliseconds.
const PairCooldown = 120.0

type pairKey struct {
	lo, hi int
}

func keyFor(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Cooldowns remembers the last contact time of every unordered combatant pair.
// It is owned by the round driver and cleared at every round start.
type Cooldowns struct {
	last map[pairKey]float64
}

// NewCooldowns returns an empty table.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{last: make(map[pairKey]float64)}
}

// Ready reports whether the pair may produce events at nowMillis and, when it
// may, records the contact.
func (c *Cooldowns) Ready(a, b int, nowMillis float64) bool {
	if c.last == nil {
		c.last = make(map[pairKey]float64)
	}
	key := keyFor(a, b)
	if last, ok := c.last[key]; ok && nowMillis-last < PairCooldown {
		return false
	}
	c.last[key] = nowMillis
	return true
}

// StampedAt reports whether the pair's last recorded contact is nowMillis.
func (c *Cooldowns) StampedAt(a, b int, nowMillis float64) bool {
	last, ok := c.last[keyFor(a, b)]
	return ok && last == nowMillis
}

// Clear forgets every recorded contact.
func (c *Cooldowns) Clear() {
	clear(c.last)
}

// Len reports the number of tracked pairs.
func (c *Cooldowns) Len() int {
	return len(c.last)
}
