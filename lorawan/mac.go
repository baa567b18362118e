package lorawan

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// CID identifies a MAC command.
type CID byte

const (
	CIDLinkCheck  CID = 0x02
	CIDLinkADR    CID = 0x03
	CIDDeviceTime CID = 0x0D
)

// MACCommand is the tagged-union of MAC commands this engine understands.
// Each concrete type below implements it; UnknownCommand is the total-ness
// fallback for any CID the decoder doesn't recognize.
type MACCommand interface {
	CommandID() CID
	encode() []byte
}

// LinkADRReq carries a server-requested DR/tx-power/channel-mask/redundancy
// change: 0x03 || (DR<<4|TXP) || chmask (LE16) || redundancy.
type LinkADRReq struct {
	DR           int
	TxPowerIndex int
	ChMask       uint16
	Redundancy   byte
}

func (c LinkADRReq) CommandID() CID { return CIDLinkADR }

func (c LinkADRReq) encode() []byte {
	buf := make([]byte, 5)
	buf[0] = byte(CIDLinkADR)
	buf[1] = byte(c.DR<<4 | (c.TxPowerIndex & 0x0F))
	binary.LittleEndian.PutUint16(buf[2:4], c.ChMask)
	buf[4] = c.Redundancy
	return buf
}

// LinkADRAns is the device's acknowledgement: 0x03 || status.
type LinkADRAns struct {
	Status byte
}

func (c LinkADRAns) CommandID() CID  { return CIDLinkADR }
func (c LinkADRAns) encode() []byte { return []byte{byte(CIDLinkADR), c.Status} }

// LinkCheckReq asks the server to report link margin; carries no payload.
type LinkCheckReq struct{}

func (c LinkCheckReq) CommandID() CID  { return CIDLinkCheck }
func (c LinkCheckReq) encode() []byte { return []byte{byte(CIDLinkCheck)} }

// LinkCheckAns reports demodulation margin and gateway count.
type LinkCheckAns struct {
	MarginDB byte
	GwCount  byte
}

func (c LinkCheckAns) CommandID() CID { return CIDLinkCheck }
func (c LinkCheckAns) encode() []byte {
	return []byte{byte(CIDLinkCheck), c.MarginDB, c.GwCount}
}

// DeviceTimeReq asks the server for the current network time; no payload.
type DeviceTimeReq struct{}

func (c DeviceTimeReq) CommandID() CID  { return CIDDeviceTime }
func (c DeviceTimeReq) encode() []byte { return []byte{byte(CIDDeviceTime)} }

// DeviceTimeAns carries GPS seconds + fractional second.
type DeviceTimeAns struct {
	Seconds    uint32
	FracSecond byte
}

func (c DeviceTimeAns) CommandID() CID { return CIDDeviceTime }
func (c DeviceTimeAns) encode() []byte {
	buf := make([]byte, 6)
	buf[0] = byte(CIDDeviceTime)
	binary.LittleEndian.PutUint32(buf[1:5], c.Seconds)
	buf[5] = c.FracSecond
	return buf
}

// UnknownCommand preserves the raw bytes of a CID the decoder doesn't
// recognize, keeping ParseMACCommands total instead of erroring out.
type UnknownCommand struct {
	CID     CID
	Payload []byte
}

func (c UnknownCommand) CommandID() CID  { return c.CID }
func (c UnknownCommand) encode() []byte { return append([]byte{byte(c.CID)}, c.Payload...) }

// macCommandPayloadLength returns the payload length (excluding the leading
// CID byte) for cid in the given direction, or -1 if unrecognized.
func macCommandPayloadLength(uplink bool, cid CID) int {
	if uplink {
		switch cid {
		case CIDLinkCheck:
			return 0
		case CIDLinkADR:
			return 1
		case CIDDeviceTime:
			return 0
		default:
			return -1
		}
	}
	switch cid {
	case CIDLinkCheck:
		return 2
	case CIDLinkADR:
		return 4
	case CIDDeviceTime:
		return 5
	default:
		return -1
	}
}

// ParseMACCommands decodes a sequence of MAC commands from data using
// leading-byte (CID) dispatch, per direction (uplink device->server vs.
// downlink server->device).
func ParseMACCommands(uplink bool, data []byte) ([]MACCommand, error) {
	var cmds []MACCommand
	for i := 0; i < len(data); {
		cid := CID(data[i])
		i++

		length := macCommandPayloadLength(uplink, cid)
		if length < 0 {
			remaining := data[i:]
			cmds = append(cmds, UnknownCommand{CID: cid, Payload: remaining})
			break
		}
		if i+length > len(data) {
			return nil, errors.Errorf("lorawan: insufficient data for MAC command %#x", byte(cid))
		}
		payload := data[i : i+length]
		i += length

		cmd, err := decodeCommand(uplink, cid, payload)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func decodeCommand(uplink bool, cid CID, payload []byte) (MACCommand, error) {
	switch {
	case cid == CIDLinkCheck && uplink:
		return LinkCheckReq{}, nil
	case cid == CIDLinkCheck && !uplink:
		return LinkCheckAns{MarginDB: payload[0], GwCount: payload[1]}, nil
	case cid == CIDLinkADR && uplink:
		return LinkADRAns{Status: payload[0]}, nil
	case cid == CIDLinkADR && !uplink:
		return LinkADRReq{
			DR:           int(payload[0] >> 4),
			TxPowerIndex: int(payload[0] & 0x0F),
			ChMask:       binary.LittleEndian.Uint16(payload[1:3]),
			Redundancy:   payload[3],
		}, nil
	case cid == CIDDeviceTime && uplink:
		return DeviceTimeReq{}, nil
	case cid == CIDDeviceTime && !uplink:
		return DeviceTimeAns{
			Seconds:    binary.LittleEndian.Uint32(payload[0:4]),
			FracSecond: payload[4],
		}, nil
	default:
		return UnknownCommand{CID: cid, Payload: payload}, nil
	}
}

// EncodeMACCommands serializes a sequence of MAC commands back to bytes.
func EncodeMACCommands(cmds []MACCommand) []byte {
	var data []byte
	for _, c := range cmds {
		data = append(data, c.encode()...)
	}
	return data
}
