package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		conn: nil,
		send: make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	msg := NewMessage("leaderboard", "updated", 0, map[string]any{"teams": float64(4)})
	hub.Broadcast(msg)

	// Check both clients received the message
	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "leaderboard_updated" {
				t.Errorf("expected type leaderboard_updated, got %s", got.Type)
			}
			if got.Entity != "leaderboard" {
				t.Errorf("expected entity leaderboard, got %s", got.Entity)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestBroadcastToTeam(t *testing.T) {
	hub := NewHub(slog.Default())

	member := mockClient(hub)
	outsider := mockClient(hub)
	hub.Register(member)
	hub.Register(outsider)
	hub.JoinTeam(member, 3)

	if got := hub.TeamSubscriberCount(3); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	hub.BroadcastToTeam(3, NewMessage("photo", "approved", 7, nil))

	select {
	case data := <-member.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != "photo_approved" {
			t.Errorf("expected type photo_approved, got %s", got.Type)
		}
		if got.TeamID != 3 {
			t.Errorf("expected team_id 3, got %d", got.TeamID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for team message")
	}

	select {
	case <-outsider.send:
		t.Fatal("outsider should not receive team message")
	default:
	}
}

func TestLeaveTeam(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)
	hub.JoinTeam(c, 3)
	hub.LeaveTeam(c, 3)

	if got := hub.TeamSubscriberCount(3); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}

	hub.BroadcastToTeam(3, NewMessage("photo", "approved", 7, nil))
	select {
	case <-c.send:
		t.Fatal("client should not receive after leaving")
	default:
	}
}

func TestUnregisterLeavesTeams(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)
	hub.JoinTeam(c, 1)
	hub.JoinTeam(c, 2)

	hub.Unregister(c)

	if got := hub.TeamSubscriberCount(1); got != 0 {
		t.Errorf("team 1 subscribers = %d, want 0", got)
	}
	if got := hub.TeamSubscriberCount(2); got != 0 {
		t.Errorf("team 2 subscribers = %d, want 0", got)
	}
}

func TestJoinTeamUnregisteredClient(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	// Never registered: join is a no-op so Unregister cannot leak channels.
	hub.JoinTeam(c, 5)

	if got := hub.TeamSubscriberCount(5); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	msg := NewMessage("statistics", "updated", 0, nil)
	hub.Broadcast(msg)
	hub.BroadcastToTeam(9, msg)
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", int64(i), nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("test", "dropped", 999, nil))

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("donation", "created", 5, nil)
	if msg.Type != "donation_created" {
		t.Errorf("expected type donation_created, got %s", msg.Type)
	}
	if msg.Entity != "donation" {
		t.Errorf("expected entity donation, got %s", msg.Entity)
	}
	if msg.Action != "created" {
		t.Errorf("expected action created, got %s", msg.Action)
	}
	if msg.ID != 5 {
		t.Errorf("expected id 5, got %d", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Spawn goroutines that register, join, broadcast, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(teamID int64) {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.JoinTeam(c, teamID%4)
			hub.Broadcast(NewMessage("test", "concurrent", 0, nil))
			hub.BroadcastToTeam(teamID%4, NewMessage("test", "team", 0, nil))
			// Drain any messages
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
