package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/wfunc/boardserver/network"
)

const usage = `commands:
  join <room>          join or create a room
  start                start the game (host only)
  roll                 roll the dice
  move <piece> <pos>   move a piece
  end                  end your turn
  quit`

type client struct {
	conn   *network.WSConnection
	roomID string
}

func (c *client) sendJSON(msgID uint16, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.Send(msgID, data)
}

func (c *client) room() map[string]string {
	return map[string]string{"roomId": c.roomID}
}

// command runs one input line; it reports false when the client should exit.
func (c *client) command(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true, nil
	}

	switch fields[0] {
	case "join":
		if len(fields) != 2 {
			return true, fmt.Errorf("usage: join <room>")
		}
		c.roomID = fields[1]
		return true, c.sendJSON(network.MsgTypeJoinGame, c.room())
	case "start":
		return true, c.sendJSON(network.MsgTypeRequestStart, c.room())
	case "roll":
		return true, c.sendJSON(network.MsgTypeRollDice, c.room())
	case "end":
		return true, c.sendJSON(network.MsgTypeEndTurn, c.room())
	case "move":
		if len(fields) != 3 {
			return true, fmt.Errorf("usage: move <piece> <pos>")
		}
		return true, c.sendJSON(network.MsgTypeMovePiece, map[string]any{
			"roomId":      c.roomID,
			"pieceId":     rawOrString(fields[1]),
			"newPosition": rawOrString(fields[2]),
		})
	case "quit", "exit":
		return false, nil
	default:
		fmt.Println(usage)
		return true, nil
	}
}

// rawOrString keeps numbers as numbers.
func rawOrString(s string) any {
	var n json.Number
	if err := json.Unmarshal([]byte(s), &n); err == nil {
		return n
	}
	return s
}

func main() {
	addr := pflag.StringP("addr", "a", "localhost:3000", "server host:port")
	room := pflag.StringP("room", "r", "", "room to join on connect")
	heartbeat := pflag.Duration("heartbeat", 20*time.Second, "heartbeat interval")
	pflag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	c := &client{conn: network.NewWSConnection(ws)}
	defer c.conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			p, err := c.conn.ReadPacket()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if p.MsgID == network.MsgTypeHeartbeat {
				continue
			}
			log.Printf("<- %s: %s", network.MsgName(p.MsgID), string(p.Data))
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	if *room != "" {
		if _, err := c.command("join " + *room); err != nil {
			log.Println("Write error:", err)
			return
		}
	}
	fmt.Println(usage)

	ticker := time.NewTicker(*heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.conn.Send(network.MsgTypeHeartbeat, nil); err != nil {
				log.Println("Heartbeat error:", err)
				return
			}
		case line, ok := <-lines:
			if !ok {
				return
			}
			more, err := c.command(line)
			if err != nil {
				log.Println(err)
			}
			if !more {
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			return
		}
	}
}
