package wire

import "errors"

// HeaderSize is the legacy-compatible 8-byte packet header: type:u32 length:u32.
const HeaderSize = 8

// VersionSize is the size of the version tag new-style packet bodies begin with.
const VersionSize = 4

// ErrUnknownVersion is returned when a packet's version tag does not match
// any version this build understands.
var ErrUnknownVersion = errors.New("wire: unknown packet version")

// Header is the 8-byte type+length prefix common to every packet on the wire.
type Header struct {
	Type   uint32
	Length uint32 // bytes following the header (version tag + body, for new-style packets)
}

// EncodeInto writes the header into buf[0:HeaderSize].
func (h Header) EncodeInto(buf []byte) {
	PutU32(buf[0:4], h.Type)
	PutU32(buf[4:8], h.Length)
}

// PeekHeader reads a Header from buf without otherwise interpreting the body.
func PeekHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrIncorrectDeserialization
	}
	return Header{Type: GetU32(buf[0:4]), Length: GetU32(buf[4:8])}, nil
}

// PeekVersion reads the u32 version tag that immediately follows the header
// in a new-style packet, without advancing any caller-held cursor.
func PeekVersion(body []byte) (uint32, error) {
	if len(body) < VersionSize {
		return 0, ErrIncorrectDeserialization
	}
	return GetU32(body[0:4]), nil
}

// SerializePacket computes the total body size (version tag + data), writes
// the 8-byte header followed by the version tag and data, and returns the
// complete packet.
func SerializePacket(msgType uint32, version uint32, data []byte) []byte {
	length := uint32(VersionSize + len(data))
	buf := make([]byte, HeaderSize+int(length))
	Header{Type: msgType, Length: length}.EncodeInto(buf)
	PutU32(buf[HeaderSize:HeaderSize+4], version)
	copy(buf[HeaderSize+4:], data)
	return buf
}

// DeserializePacketDataNoHeader splits a packet body (without the outer
// 8-byte header) into its version tag and trailing data.
func DeserializePacketDataNoHeader(body []byte) (version uint32, data []byte, err error) {
	version, err = PeekVersion(body)
	if err != nil {
		return 0, nil, err
	}
	return version, body[VersionSize:], nil
}

// DeserializePacketDataSkipHeader eats the 8-byte header from buf, validates
// that the declared length matches what remains, then behaves as
// DeserializePacketDataNoHeader on the remainder.
func DeserializePacketDataSkipHeader(buf []byte) (msgType uint32, version uint32, data []byte, err error) {
	h, err := PeekHeader(buf)
	if err != nil {
		return 0, 0, nil, err
	}
	body := buf[HeaderSize:]
	if len(body) < int(h.Length) {
		return 0, 0, nil, ErrIncorrectDeserialization
	}
	body = body[:h.Length]
	version, data, err = DeserializePacketDataNoHeader(body)
	if err != nil {
		return 0, 0, nil, err
	}
	return h.Type, version, data, nil
}

// Message type codes for the read-chunk request/response flow (spec §6).
// These are this module's own type-code allocation: the field shapes are
// grounded in the documented wire table, but the numeric codes themselves
// are local, not a claim of matching any particular upstream registry.
const (
	TypeCltomaFuseReadChunk uint32 = 2000 + iota
	TypeMatoclFuseReadChunkData
	TypeMatoclFuseReadChunkStatus
	TypeCltocsRead
	TypeCstoclReadData
	TypeCstoclReadStatus
	TypeCstomaRegisterHost
	TypeCstocsGetChunkBlocks
	TypeCstocsGetChunkBlocksStatus
)

// CltomaFuseReadChunk is CLTOMA_FUSE_READ_CHUNK: a client asking the
// master which chunk backs one block of a file.
type CltomaFuseReadChunk struct {
	MsgID      uint32
	Inode      uint32
	ChunkIndex uint32
}

// Encode renders the body (everything after the packet version tag).
func (m CltomaFuseReadChunk) Encode() []byte {
	buf := make([]byte, 12)
	c := NewCursor(buf)
	c.PutU32(m.MsgID)
	c.PutU32(m.Inode)
	c.PutU32(m.ChunkIndex)
	return buf
}

// DecodeCltomaFuseReadChunk parses the body written by Encode.
func DecodeCltomaFuseReadChunk(data []byte) (CltomaFuseReadChunk, error) {
	c := NewCursor(data)
	msgID, err := c.GetU32()
	if err != nil {
		return CltomaFuseReadChunk{}, err
	}
	inode, err := c.GetU32()
	if err != nil {
		return CltomaFuseReadChunk{}, err
	}
	chunkIndex, err := c.GetU32()
	if err != nil {
		return CltomaFuseReadChunk{}, err
	}
	return CltomaFuseReadChunk{MsgID: msgID, Inode: inode, ChunkIndex: chunkIndex}, nil
}

// ChunkLocation is one element of MatoclFuseReadChunkData's location list:
// a chunkserver holding one part of the chunk. ChunkType is the parttype
// 2-byte wire id (parttype.Serialize/Deserialize).
type ChunkLocation struct {
	IP        uint32
	Port      uint16
	ChunkType uint16
	CSVersion uint32
}

// MatoclFuseReadChunkData is the data variant of MATOCL_FUSE_READ_CHUNK:
// the master's answer naming the chunk and every server holding a part of it.
type MatoclFuseReadChunkData struct {
	MsgID        uint32
	FileLength   uint64
	ChunkID      uint64
	ChunkVersion uint32
	Locations    []ChunkLocation
}

func (m MatoclFuseReadChunkData) Encode() []byte {
	buf := make([]byte, 4+8+8+4+len(m.Locations)*12)
	c := NewCursor(buf)
	c.PutU32(m.MsgID)
	c.PutU64(m.FileLength)
	c.PutU64(m.ChunkID)
	c.PutU32(m.ChunkVersion)
	for _, loc := range m.Locations {
		c.PutU32(loc.IP)
		c.PutU16(loc.Port)
		c.PutU16(loc.ChunkType)
		c.PutU32(loc.CSVersion)
	}
	return buf
}

func DecodeMatoclFuseReadChunkData(data []byte) (MatoclFuseReadChunkData, error) {
	c := NewCursor(data)
	msgID, err := c.GetU32()
	if err != nil {
		return MatoclFuseReadChunkData{}, err
	}
	fileLength, err := c.GetU64()
	if err != nil {
		return MatoclFuseReadChunkData{}, err
	}
	chunkID, err := c.GetU64()
	if err != nil {
		return MatoclFuseReadChunkData{}, err
	}
	chunkVersion, err := c.GetU32()
	if err != nil {
		return MatoclFuseReadChunkData{}, err
	}
	if c.Remaining()%12 != 0 {
		return MatoclFuseReadChunkData{}, ErrIncorrectDeserialization
	}
	locs := make([]ChunkLocation, 0, c.Remaining()/12)
	for c.Remaining() > 0 {
		ip, _ := c.GetU32()
		port, _ := c.GetU16()
		chunkType, _ := c.GetU16()
		csVersion, _ := c.GetU32()
		locs = append(locs, ChunkLocation{IP: ip, Port: port, ChunkType: chunkType, CSVersion: csVersion})
	}
	return MatoclFuseReadChunkData{
		MsgID: msgID, FileLength: fileLength, ChunkID: chunkID,
		ChunkVersion: chunkVersion, Locations: locs,
	}, nil
}

// MatoclFuseReadChunkStatus is the status (error) variant of
// MATOCL_FUSE_READ_CHUNK.
type MatoclFuseReadChunkStatus struct {
	MsgID  uint32
	Status uint8
}

func (m MatoclFuseReadChunkStatus) Encode() []byte {
	buf := make([]byte, 5)
	c := NewCursor(buf)
	c.PutU32(m.MsgID)
	c.PutU8(m.Status)
	return buf
}

func DecodeMatoclFuseReadChunkStatus(data []byte) (MatoclFuseReadChunkStatus, error) {
	c := NewCursor(data)
	msgID, err := c.GetU32()
	if err != nil {
		return MatoclFuseReadChunkStatus{}, err
	}
	status, err := c.GetU8()
	if err != nil {
		return MatoclFuseReadChunkStatus{}, err
	}
	return MatoclFuseReadChunkStatus{MsgID: msgID, Status: status}, nil
}

// CltocsRead is CLTOCS_READ: a client asking one chunkserver to read a
// byte range of one part.
type CltocsRead struct {
	ChunkID      uint64
	ChunkVersion uint32
	ChunkType    uint16
	Offset       uint32
	Size         uint32
}

func (m CltocsRead) Encode() []byte {
	buf := make([]byte, 8+4+2+4+4)
	c := NewCursor(buf)
	c.PutU64(m.ChunkID)
	c.PutU32(m.ChunkVersion)
	c.PutU16(m.ChunkType)
	c.PutU32(m.Offset)
	c.PutU32(m.Size)
	return buf
}

func DecodeCltocsRead(data []byte) (CltocsRead, error) {
	c := NewCursor(data)
	chunkID, err := c.GetU64()
	if err != nil {
		return CltocsRead{}, err
	}
	chunkVersion, err := c.GetU32()
	if err != nil {
		return CltocsRead{}, err
	}
	chunkType, err := c.GetU16()
	if err != nil {
		return CltocsRead{}, err
	}
	offset, err := c.GetU32()
	if err != nil {
		return CltocsRead{}, err
	}
	size, err := c.GetU32()
	if err != nil {
		return CltocsRead{}, err
	}
	return CltocsRead{ChunkID: chunkID, ChunkVersion: chunkVersion, ChunkType: chunkType, Offset: offset, Size: size}, nil
}

// CstoclReadData is CSTOCL_READ_DATA: one block of a chunkserver's
// response to CltocsRead.
type CstoclReadData struct {
	ChunkID     uint64
	BlockOffset uint32
	BlockSize   uint32
	CRC         uint32
	Data        []byte
}

func (m CstoclReadData) Encode() []byte {
	buf := make([]byte, 8+4+4+4+len(m.Data))
	c := NewCursor(buf)
	c.PutU64(m.ChunkID)
	c.PutU32(m.BlockOffset)
	c.PutU32(m.BlockSize)
	c.PutU32(m.CRC)
	c.PutBytes(m.Data)
	return buf
}

func DecodeCstoclReadData(data []byte) (CstoclReadData, error) {
	c := NewCursor(data)
	chunkID, err := c.GetU64()
	if err != nil {
		return CstoclReadData{}, err
	}
	blockOffset, err := c.GetU32()
	if err != nil {
		return CstoclReadData{}, err
	}
	blockSize, err := c.GetU32()
	if err != nil {
		return CstoclReadData{}, err
	}
	crc, err := c.GetU32()
	if err != nil {
		return CstoclReadData{}, err
	}
	block, err := c.GetBytes(int(blockSize))
	if err != nil {
		return CstoclReadData{}, err
	}
	return CstoclReadData{ChunkID: chunkID, BlockOffset: blockOffset, BlockSize: blockSize, CRC: crc, Data: block}, nil
}

// CstoclReadStatus is CSTOCL_READ_STATUS: a chunkserver ending a read
// response stream, successfully (StatusOK) or not.
type CstoclReadStatus struct {
	ChunkID uint64
	Status  uint8
}

func (m CstoclReadStatus) Encode() []byte {
	buf := make([]byte, 9)
	c := NewCursor(buf)
	c.PutU64(m.ChunkID)
	c.PutU8(m.Status)
	return buf
}

func DecodeCstoclReadStatus(data []byte) (CstoclReadStatus, error) {
	c := NewCursor(data)
	chunkID, err := c.GetU64()
	if err != nil {
		return CstoclReadStatus{}, err
	}
	status, err := c.GetU8()
	if err != nil {
		return CstoclReadStatus{}, err
	}
	return CstoclReadStatus{ChunkID: chunkID, Status: status}, nil
}

// CstomaRegisterHost is CSTOMA_REGISTER_HOST: a chunkserver announcing
// itself to the master.
type CstomaRegisterHost struct {
	IP      uint32
	Port    uint16
	Timeout uint16
}

func (m CstomaRegisterHost) Encode() []byte {
	buf := make([]byte, 8)
	c := NewCursor(buf)
	c.PutU32(m.IP)
	c.PutU16(m.Port)
	c.PutU16(m.Timeout)
	return buf
}

func DecodeCstomaRegisterHost(data []byte) (CstomaRegisterHost, error) {
	c := NewCursor(data)
	ip, err := c.GetU32()
	if err != nil {
		return CstomaRegisterHost{}, err
	}
	port, err := c.GetU16()
	if err != nil {
		return CstomaRegisterHost{}, err
	}
	timeout, err := c.GetU16()
	if err != nil {
		return CstomaRegisterHost{}, err
	}
	return CstomaRegisterHost{IP: ip, Port: port, Timeout: timeout}, nil
}

// CstocsGetChunkBlocks is CSTOCS_GET_CHUNK_BLOCKS: one chunkserver asking
// a peer how many blocks it holds of a part, during EC/xor recovery.
type CstocsGetChunkBlocks struct {
	ChunkID      uint64
	ChunkVersion uint32
	ChunkType    uint16
}

func (m CstocsGetChunkBlocks) Encode() []byte {
	buf := make([]byte, 8+4+2)
	c := NewCursor(buf)
	c.PutU64(m.ChunkID)
	c.PutU32(m.ChunkVersion)
	c.PutU16(m.ChunkType)
	return buf
}

func DecodeCstocsGetChunkBlocks(data []byte) (CstocsGetChunkBlocks, error) {
	c := NewCursor(data)
	chunkID, err := c.GetU64()
	if err != nil {
		return CstocsGetChunkBlocks{}, err
	}
	chunkVersion, err := c.GetU32()
	if err != nil {
		return CstocsGetChunkBlocks{}, err
	}
	chunkType, err := c.GetU16()
	if err != nil {
		return CstocsGetChunkBlocks{}, err
	}
	return CstocsGetChunkBlocks{ChunkID: chunkID, ChunkVersion: chunkVersion, ChunkType: chunkType}, nil
}

// CstocsGetChunkBlocksStatus answers CstocsGetChunkBlocks.
type CstocsGetChunkBlocksStatus struct {
	ChunkID      uint64
	ChunkVersion uint32
	ChunkType    uint16
	Blocks       uint16
	Status       uint8
}

func (m CstocsGetChunkBlocksStatus) Encode() []byte {
	buf := make([]byte, 8+4+2+2+1)
	c := NewCursor(buf)
	c.PutU64(m.ChunkID)
	c.PutU32(m.ChunkVersion)
	c.PutU16(m.ChunkType)
	c.PutU16(m.Blocks)
	c.PutU8(m.Status)
	return buf
}

func DecodeCstocsGetChunkBlocksStatus(data []byte) (CstocsGetChunkBlocksStatus, error) {
	c := NewCursor(data)
	chunkID, err := c.GetU64()
	if err != nil {
		return CstocsGetChunkBlocksStatus{}, err
	}
	chunkVersion, err := c.GetU32()
	if err != nil {
		return CstocsGetChunkBlocksStatus{}, err
	}
	chunkType, err := c.GetU16()
	if err != nil {
		return CstocsGetChunkBlocksStatus{}, err
	}
	blocks, err := c.GetU16()
	if err != nil {
		return CstocsGetChunkBlocksStatus{}, err
	}
	status, err := c.GetU8()
	if err != nil {
		return CstocsGetChunkBlocksStatus{}, err
	}
	return CstocsGetChunkBlocksStatus{
		ChunkID: chunkID, ChunkVersion: chunkVersion, ChunkType: chunkType,
		Blocks: blocks, Status: status,
	}, nil
}
