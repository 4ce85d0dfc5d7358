package msg

import (
	"encoding/binary"
	"fmt"

	"github.com/buzzswarm/buzzvm/value"
)

// BroadcastMsg is the BROADCAST (0) wire shape:
// u16 src_robot, u16 topic_sid, <value>.
type BroadcastMsg struct {
	SrcRobot uint16
	TopicSID uint16
	Value    value.Value
}

func (m BroadcastMsg) Encode() ([]byte, error) {
	buf := []byte{byte(Broadcast)}
	buf = appendU16(buf, m.SrcRobot)
	buf = appendU16(buf, m.TopicSID)
	return EncodeValue(buf, m.Value)
}

func DecodeBroadcast(data []byte) (BroadcastMsg, error) {
	if len(data) < 5 {
		return BroadcastMsg{}, fmt.Errorf("msg: truncated BROADCAST")
	}
	v, _, err := DecodeValue(data[5:])
	if err != nil {
		return BroadcastMsg{}, err
	}
	return BroadcastMsg{
		SrcRobot: binary.LittleEndian.Uint16(data[1:3]),
		TopicSID: binary.LittleEndian.Uint16(data[3:5]),
		Value:    v,
	}, nil
}

// SwarmListMsg is SWARM_LIST (1): u16 src_robot, u16 n, n x u16 swarm_id.
type SwarmListMsg struct {
	SrcRobot uint16
	SwarmIDs []uint16
}

func (m SwarmListMsg) Encode() ([]byte, error) {
	buf := []byte{byte(SwarmList)}
	buf = appendU16(buf, m.SrcRobot)
	buf = appendU16(buf, uint16(len(m.SwarmIDs)))
	for _, id := range m.SwarmIDs {
		buf = appendU16(buf, id)
	}
	return buf, nil
}

func DecodeSwarmList(data []byte) (SwarmListMsg, error) {
	if len(data) < 5 {
		return SwarmListMsg{}, fmt.Errorf("msg: truncated SWARM_LIST")
	}
	n := int(binary.LittleEndian.Uint16(data[3:5]))
	if len(data) < 5+2*n {
		return SwarmListMsg{}, fmt.Errorf("msg: truncated SWARM_LIST body")
	}
	ids := make([]uint16, n)
	for i := 0; i < n; i++ {
		ids[i] = binary.LittleEndian.Uint16(data[5+2*i:])
	}
	return SwarmListMsg{SrcRobot: binary.LittleEndian.Uint16(data[1:3]), SwarmIDs: ids}, nil
}

// SwarmMembershipMsg covers both SWARM_JOIN (2) and SWARM_LEAVE (3):
// u16 src_robot, u16 swarm_id.
type SwarmMembershipMsg struct {
	Kind     Kind
	SrcRobot uint16
	SwarmID  uint16
}

func (m SwarmMembershipMsg) Encode() ([]byte, error) {
	buf := []byte{byte(m.Kind)}
	buf = appendU16(buf, m.SrcRobot)
	buf = appendU16(buf, m.SwarmID)
	return buf, nil
}

func DecodeSwarmMembership(data []byte) (SwarmMembershipMsg, error) {
	if len(data) < 5 {
		return SwarmMembershipMsg{}, fmt.Errorf("msg: truncated SWARM_JOIN/LEAVE")
	}
	return SwarmMembershipMsg{
		Kind:     Kind(data[0]),
		SrcRobot: binary.LittleEndian.Uint16(data[1:3]),
		SwarmID:  binary.LittleEndian.Uint16(data[3:5]),
	}, nil
}

// VstigMsg covers both VSTIG_PUT (4) and VSTIG_QUERY (5):
// u16 vstig_id, u16 key_sid, <value>, u32 ts, u16 owner_robot.
type VstigMsg struct {
	Kind      Kind
	VstigID   uint16
	KeySID    uint16
	Value     value.Value
	Timestamp uint32
	Owner     uint16
}

func (m VstigMsg) Encode() ([]byte, error) {
	buf := []byte{byte(m.Kind)}
	buf = appendU16(buf, m.VstigID)
	buf = appendU16(buf, m.KeySID)
	var err error
	buf, err = EncodeValue(buf, m.Value)
	if err != nil {
		return nil, err
	}
	buf = appendU32(buf, m.Timestamp)
	buf = appendU16(buf, m.Owner)
	return buf, nil
}

func DecodeVstig(data []byte) (VstigMsg, error) {
	if len(data) < 5 {
		return VstigMsg{}, fmt.Errorf("msg: truncated VSTIG message")
	}
	kind := Kind(data[0])
	vstigID := binary.LittleEndian.Uint16(data[1:3])
	keySID := binary.LittleEndian.Uint16(data[3:5])
	v, n, err := DecodeValue(data[5:])
	if err != nil {
		return VstigMsg{}, err
	}
	off := 5 + n
	if len(data) < off+6 {
		return VstigMsg{}, fmt.Errorf("msg: truncated VSTIG tail")
	}
	ts := binary.LittleEndian.Uint32(data[off : off+4])
	owner := binary.LittleEndian.Uint16(data[off+4 : off+6])
	return VstigMsg{Kind: kind, VstigID: vstigID, KeySID: keySID, Value: v, Timestamp: ts, Owner: owner}, nil
}

func appendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
