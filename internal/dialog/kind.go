package dialog

import "fmt"

// Kind is the dialog code echoed back by the client in a dialog response.
type Kind byte

const (
	SimpleWarning     Kind = 0x00
	GuildInvite       Kind = 0x03
	GroupInvite       Kind = 0x05
	CustomDialog      Kind = 0x06
	GuildLeave        Kind = 0x08
	HousePayRent      Kind = 0x14
	MasterLevelWindow Kind = 0x19
	KeepClaim         Kind = 0x1A
	BuyRespec         Kind = 0x20
	QuestSubscribe    Kind = 0x64

	// CheckLOS never travels in a dialog packet. Line-of-sight answers come
	// back on their own opcode and share the registry under this kind.
	CheckLOS Kind = 0xFF
)

var kindNames = map[Kind]string{
	SimpleWarning:     "SimpleWarning",
	GuildInvite:       "GuildInvite",
	GroupInvite:       "GroupInvite",
	CustomDialog:      "CustomDialog",
	GuildLeave:        "GuildLeave",
	HousePayRent:      "HousePayRent",
	MasterLevelWindow: "MasterLevelWindow",
	KeepClaim:         "KeepClaim",
	BuyRespec:         "BuyRespec",
	QuestSubscribe:    "QuestSubscribe",
	CheckLOS:          "CheckLOS",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(0x%02X)", byte(k))
}

// Box is the button layout of a dialog box.
type Box byte

const (
	BoxOk    Box = 0x00
	BoxYesNo Box = 0x01
)

// Response is the answer carried by a dialog or line-of-sight reply.
type Response uint16

const (
	ResponseDecline Response = 0x00
	ResponseAccept  Response = 0x01

	// LOSVisible is set in a line-of-sight reply when the target is in view.
	LOSVisible Response = 0x100
)

// Accepted reports whether a dialog answer was yes/ok.
func (r Response) Accepted() bool { return r&0xFF == ResponseAccept }

// Visible reports whether a line-of-sight reply saw the target.
func (r Response) Visible() bool { return r&LOSVisible == LOSVisible }

// Key identifies a pending continuation. The correlation is whatever value
// the server sent out and the client echoes back unchanged.
type Key struct {
	Kind        Kind
	Correlation uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Kind, k.Correlation)
}

// LOSKey packs a checker/target pair into a CheckLOS key.
func LOSKey(checker, target uint16) Key {
	return Key{Kind: CheckLOS, Correlation: uint32(checker)<<16 | uint32(target)}
}
