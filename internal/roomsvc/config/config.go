package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the room-service knobs read from the environment.
type Config struct {
	Costs         []int         // entry cost per room, one room per tier
	CountdownSec  int           // countdown ticks before a game starts
	CountdownTick time.Duration // tick resolution, one second in production
	CallInterval  time.Duration // cadence of the number caller
	DeckSize      int           // cards in the shared deck
	DeckSeed      int64         // deck generation seed
	MaxCards      int           // per-player card cap in one room
	AdminHandles  []string      // handles granted the admin flag on init
}

func Load() Config {
	c := Config{
		Costs:         []int{10, 20, 40, 50, 100, 200},
		CountdownSec:  60,
		CountdownTick: time.Second,
		CallInterval:  5 * time.Second,
		DeckSize:      100,
		DeckSeed:      20240601,
		MaxCards:      4,
	}

	if v := os.Getenv("ROOM_COSTS"); v != "" {
		var costs []int
		for _, part := range strings.Split(v, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && n > 0 {
				costs = append(costs, n)
			}
		}
		if len(costs) > 0 {
			c.Costs = costs
		}
	}
	if n, err := strconv.Atoi(os.Getenv("COUNTDOWN_SEC")); err == nil && n > 0 {
		c.CountdownSec = n
	}
	if n, err := strconv.Atoi(os.Getenv("CALL_INTERVAL_SEC")); err == nil && n > 0 {
		c.CallInterval = time.Duration(n) * time.Second
	}
	if n, err := strconv.Atoi(os.Getenv("DECK_SIZE")); err == nil && n > 0 {
		c.DeckSize = n
	}
	if n, err := strconv.ParseInt(os.Getenv("DECK_SEED"), 10, 64); err == nil {
		c.DeckSeed = n
	}
	if v := os.Getenv("ADMIN_HANDLES"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if h := strings.TrimSpace(part); h != "" {
				c.AdminHandles = append(c.AdminHandles, h)
			}
		}
	}
	return c
}

// IsAdmin reports whether a handle is configured as an admin.
func (c Config) IsAdmin(handle string) bool {
	for _, h := range c.AdminHandles {
		if h == handle {
			return true
		}
	}
	return false
}
