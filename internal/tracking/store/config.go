package store

import (
	"time"

	"fleet-tracker/internal/tracking/feed"
	"fleet-tracker/internal/tracking/motion"
	"fleet-tracker/internal/tracking/path"
	"fleet-tracker/internal/tracking/status"
)

// Config holds the timing knobs of a tracking session.
type Config struct {
	TickInterval   time.Duration
	DebounceWindow time.Duration
	NoticeTTL      time.Duration
	FrameInterval  time.Duration
	PathSteps      int
	CenterZoom     float64
	FlyDuration    time.Duration
}

const (
	DefaultNoticeTTL   = 3 * time.Second
	DefaultCenterZoom  = 18
	DefaultFlyDuration = 2 * time.Second
)

func DefaultConfig() Config {
	return Config{
		TickInterval:   feed.DefaultInterval,
		DebounceWindow: status.DefaultWindow,
		NoticeTTL:      DefaultNoticeTTL,
		FrameInterval:  motion.DefaultFrameInterval,
		PathSteps:      path.DefaultSteps,
		CenterZoom:     DefaultCenterZoom,
		FlyDuration:    DefaultFlyDuration,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = d.DebounceWindow
	}
	if c.NoticeTTL <= 0 {
		c.NoticeTTL = d.NoticeTTL
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	if c.PathSteps <= 0 {
		c.PathSteps = d.PathSteps
	}
	if c.CenterZoom <= 0 {
		c.CenterZoom = d.CenterZoom
	}
	if c.FlyDuration < 0 {
		c.FlyDuration = d.FlyDuration
	}
	return c
}
