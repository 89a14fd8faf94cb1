package room

import (
	"fmt"

	"github.com/google/uuid"
)

// Board rules. These are part of the game, not configuration.
const (
	MaxSeats       = 4
	BoardSize      = 40
	TrapFieldCount = 8
	BotIDPrefix    = "BOT_"
)

// SafeZones are the start fields; traps never land on them.
var SafeZones = [...]int{0, 10, 20, 30}

type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
)

// SeatColors is the fixed color sequence. Seat k is SeatColors[k]; a newcomer
// takes the lowest seat whose color is free.
var SeatColors = [MaxSeats]Color{Red, Blue, Green, Yellow}

var figures = map[Color]string{
	Red:    "Mörder-Puppe",
	Blue:   "Grabkreuz",
	Green:  "Grabstein",
	Yellow: "Poltergeist",
}

// Figure returns the board figure bound to a color.
func Figure(c Color) string {
	return figures[c]
}

// Player occupies one seat. Human ids are connection ids.
type Player struct {
	ID     string `json:"id"`
	Color  Color  `json:"color"`
	IsBot  bool   `json:"isBot"`
	Name   string `json:"name"`
	Figure string `json:"figure"`
}

func NewHuman(connID string, seat int) *Player {
	c := SeatColors[seat]
	return &Player{
		ID:     connID,
		Color:  c,
		Name:   fmt.Sprintf("Spieler %d", seat+1),
		Figure: Figure(c),
	}
}

func NewBot(id string, seat int) *Player {
	c := SeatColors[seat]
	return &Player{
		ID:     id,
		Color:  c,
		IsBot:  true,
		Name:   fmt.Sprintf("Bot (%s)", Figure(c)),
		Figure: Figure(c),
	}
}

// NewBotID returns a synthetic id that cannot collide with a connection id.
func NewBotID() string {
	return BotIDPrefix + uuid.NewString()
}
