package scraper

import "time"

// Config holds the pipeline knobs shared by the walker and page sources.
type Config struct {
	// UserAgent is sent on every request; a realistic browser string keeps
	// the source site from serving degraded markup.
	UserAgent string
	// NavigationTimeout bounds a single page render.
	NavigationTimeout time.Duration
	// LinkCap bounds how many product links a listing walk visits.
	LinkCap int
	// MinLinkLength filters out relative and junk anchors after resolution.
	MinLinkLength int
	// DelayMin and DelayJitter shape the politeness pause between product
	// fetches: DelayMin plus a random duration in [0, DelayJitter).
	DelayMin    time.Duration
	DelayJitter time.Duration
}

const (
	defaultNavigationTimeout = 45 * time.Second
	defaultLinkCap           = 5
	defaultMinLinkLength     = 30
	defaultDelayMin          = time.Second
	defaultDelayJitter       = 2 * time.Second
)

func (c Config) withDefaults() Config {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = defaultNavigationTimeout
	}
	if c.LinkCap <= 0 {
		c.LinkCap = defaultLinkCap
	}
	if c.MinLinkLength <= 0 {
		c.MinLinkLength = defaultMinLinkLength
	}
	if c.DelayMin < 0 {
		c.DelayMin = defaultDelayMin
	}
	if c.DelayJitter < 0 {
		c.DelayJitter = defaultDelayJitter
	}
	return c
}
