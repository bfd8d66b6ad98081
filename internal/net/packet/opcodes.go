package packet

import "fmt"

// Opcode identifies a client packet handler. Values are the base codes of
// the client opcode table; the wire carries them XORed with the protocol salt.
type Opcode uint16

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return fmt.Sprintf("%s(0x%02X)", name, uint16(o))
	}
	return fmt.Sprintf("0x%02X", uint16(o))
}

// Version is a client protocol version (168 = 1.68).
type Version uint16

const (
	Version168 Version = 168
	Version186 Version = 186
)

// Salt returns the value XORed onto opcodes for this protocol family.
// Every client from 1.68 on shares the 1.68 opcode table.
func (v Version) Salt() uint16 {
	return uint16(Version168)
}

// Decode turns a wire opcode into a registry opcode.
func (v Version) Decode(wire uint16) Opcode {
	return Opcode(wire ^ v.Salt())
}

// Encode turns a registry opcode into its wire value.
func (v Version) Encode(op Opcode) uint16 {
	return uint16(op) ^ v.Salt()
}

// Client opcodes (1.68 table).
const (
	C_LOGIN_REQUEST         Opcode = 0xA7
	C_PING_REQUEST          Opcode = 0xA3
	C_WORLD_INIT_REQUEST    Opcode = 0xD4
	C_QUIT_REQUEST          Opcode = 0xA4
	C_DETAIL_REQUEST        Opcode = 0x69
	C_DIALOG_RESPONSE       Opcode = 0x82
	C_CHECK_LOS_RESPONSE    Opcode = 0xD0
	C_REGION_CHANGE_REQUEST Opcode = 0x90
	C_PLAYER_BUY_REQUEST    Opcode = 0x78
	C_DOOR_REQUEST          Opcode = 0x99
	C_DESTROY_ITEM_REQUEST  Opcode = 0x80
)

var opcodeNames = map[Opcode]string{
	C_LOGIN_REQUEST:         "LoginRequest",
	C_PING_REQUEST:          "PingRequest",
	C_WORLD_INIT_REQUEST:    "WorldInitRequest",
	C_QUIT_REQUEST:          "QuitRequest",
	C_DETAIL_REQUEST:        "DetailRequest",
	C_DIALOG_RESPONSE:       "DialogResponse",
	C_CHECK_LOS_RESPONSE:    "CheckLOSResponse",
	C_REGION_CHANGE_REQUEST: "RegionChangeRequest",
	C_PLAYER_BUY_REQUEST:    "PlayerBuyRequest",
	C_DOOR_REQUEST:          "DoorRequest",
	C_DESTROY_ITEM_REQUEST:  "DestroyItemRequest",
}

// ServerCode is a server packet code (ePackets).
type ServerCode byte

const (
	S_INVENTORY_UPDATE ServerCode = 0x02
	S_PING_REPLY       ServerCode = 0x29
	S_LOGIN_GRANTED    ServerCode = 0x2A
	S_LOGIN_DENIED     ServerCode = 0x2C
	S_DIALOG           ServerCode = 0x81
	S_DOOR_STATE       ServerCode = 0x99
	S_QUIT             ServerCode = 0xA4
	S_MESSAGE          ServerCode = 0xAF
	S_REGION_CHANGED   ServerCode = 0xB7
	S_DETAIL_WINDOW    ServerCode = 0xC4
	S_CHECK_LOS        ServerCode = 0xD0
	S_MONEY_UPDATE     ServerCode = 0xFA
)
