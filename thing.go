package sonar

import (
	"context"
	"log/slog"
)

// Subscribers maps a packet Path to its handler
type Subscribers map[string]func(*Packet)

type Thinger interface {
	Subscribers() Subscribers
	Announce() *Packet
	Run(context.Context, *Injector) error
	Id() string
	Model() string
	Name() string
	String() string
	SetFlag(uint32)
	TestFlag(uint32) bool
}

// Keeper is a thing that saves only part of its state.  Kept returns a
// pointer to that part: ThingStore marshals it and ThingRestore unmarshals
// into it.
type Keeper interface {
	Kept() any
}

func kept(t Thinger) any {
	if k, ok := t.(Keeper); ok {
		return k.Kept()
	}
	return t
}

// ThingMsg is the routing header every packet message carries
type ThingMsg struct {
	Path string
}

type ThingMsgAnnounce struct {
	Path  string
	Id    string
	Model string
	Name  string
}

type Thing struct {
	id    string
	model string
	name  string
	flags uint32
	mu    mutex
}

func NewThing(id, model, name string) Thing {
	if !ValidId(id) || !ValidId(model) || !ValidId(name) {
		panic("something invalid: id = \"" + id + "\", model = \"" +
			model + "\", name = \"" + name + "\"")
	}
	return Thing{id: id, model: model, name: name}
}

const (
	// Thing is running on real hardware, not a copy on a server
	ThingFlagMetal uint32 = 1 << iota
)

func (t *Thing) Subscribers() Subscribers  { return nil }
func (t *Thing) Id() string                { return t.id }
func (t *Thing) Model() string             { return t.model }
func (t *Thing) Name() string              { return t.name }
func (t *Thing) Lock()                     { t.mu.Lock() }
func (t *Thing) Unlock()                   { t.mu.Unlock() }
func (t *Thing) SetFlag(flag uint32)       { t.flags |= flag }
func (t *Thing) TestFlag(flag uint32) bool { return (t.flags & flag) != 0 }
func (t *Thing) IsMetal() bool             { return t.TestFlag(ThingFlagMetal) }

func (t *Thing) Run(ctx context.Context, i *Injector) error {
	<-ctx.Done()
	return ctx.Err()
}

func (t *Thing) String() string {
	return "[Id: " + t.id + ", Model: " + t.model + ", Name: " + t.name + "]"
}

func (t *Thing) Announce() *Packet {
	var pkt Packet
	var ann = ThingMsgAnnounce{"announce", t.id, t.model, t.name}
	return pkt.Marshal(&ann)
}

// A valid ID is a non-empty string with only [a-z], [A-Z], [0-9], or
// underscore characters.
func ValidId(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			(r != '_') {
			return false
		}
	}
	return len(s) > 0
}

// dispatch returns a bus handler that routes packets to the thing's
// subscribers by Path
func dispatch(thinger Thinger) func(*Packet) {
	subs := thinger.Subscribers()
	return func(pkt *Packet) {
		var msg ThingMsg
		if pkt.Unmarshal(&msg).Err() != nil {
			return
		}
		handler, ok := subs[msg.Path]
		if !ok {
			slog.Debug("no subscriber", "thing", thinger.Id(), "path", msg.Path)
			return
		}
		handler(pkt)
	}
}
