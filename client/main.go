package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/vocabversus/network"
)

// gorilla/websocket allows one concurrent writer.
var writeMu sync.Mutex

// send frames payload and writes it to the server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet, err := network.EncodeFrame(msgID, data)
	if err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func invoke(c *websocket.Conn, target string, args ...interface{}) error {
	raw := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return err
		}
		raw = append(raw, b)
	}
	data, err := json.Marshal(network.Invocation{
		InvocationID: uuid.New().String(),
		Target:       target,
		Arguments:    raw,
	})
	if err != nil {
		return err
	}
	return send(c, network.MsgTypeInvocation, data)
}

// parseCommand turns a console line into an invocation.
//
//	check <game>
//	join <game> <name>
//	kick <game> <player>
//	ready <game> [true|false]
func parseCommand(line string) (string, []interface{}, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", nil, false
	}
	switch fields[0] {
	case "check":
		return "CheckGame", []interface{}{fields[1]}, true
	case "join":
		if len(fields) < 3 {
			return "", nil, false
		}
		return "Join", []interface{}{fields[1], strings.Join(fields[2:], " ")}, true
	case "kick":
		if len(fields) != 3 {
			return "", nil, false
		}
		return "Kick", []interface{}{fields[1], fields[2]}, true
	case "ready":
		ready := true
		if len(fields) > 2 {
			v, err := strconv.ParseBool(fields[2])
			if err != nil {
				return "", nil, false
			}
			ready = v
		}
		return "Ready", []interface{}{fields[1], ready}, true
	}
	return "", nil, false
}

func main() {
	addr := flag.String("addr", "localhost:8080", "game server address")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/game"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.DecodeFrame(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			switch packet.MsgID {
			case network.MsgTypeEvent:
				log.Printf("<- EVENT %s", packet.Data)
			case network.MsgTypeCompletion:
				log.Printf("<- DONE %s", packet.Data)
			}
		}
	}()

	// Keep the server's read deadline from expiring
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := send(c, network.MsgTypeHeartbeat, nil); err != nil {
					return
				}
			}
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	log.Println("Commands: check <game> | join <game> <name> | kick <game> <player> | ready <game> [true|false]")

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			writeMu.Lock()
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			writeMu.Unlock()
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line := <-lines:
			target, args, ok := parseCommand(line)
			if !ok {
				log.Printf("Unrecognized command %q", line)
				continue
			}
			if err := invoke(c, target, args...); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> %s %v", target, args)
		}
	}
}
