package hfe

// Constants for HFE format
const (
	// Signature for HFE v1 format
	HFEv1Signature = "HXCPICFE"

	// Signature for HFE v3 format, recognised but not supported
	HFEv3Signature = "HXCHFEV3"

	// Block size in bytes
	BlockSize = 512
)

// Track encoding types
const (
	ENC_ISOIBM_MFM = iota
	ENC_Amiga_MFM
	ENC_ISOIBM_FM
	ENC_Emu_FM
	ENC_Unknown = 0xff
)

// Interface mode types
const (
	IFM_IBMPC_DD = iota
	IFM_IBMPC_HD
	IFM_AtariST_DD
	IFM_AtariST_HD
	IFM_Amiga_DD
	IFM_Amiga_HD
	IFM_CPC_DD
	IFM_GenericShugart_DD
)

// Header represents the HFE file header
type Header struct {
	HeaderSignature     [8]byte
	FormatRevision      uint8
	NumberOfTrack       uint8
	NumberOfSide        uint8
	TrackEncoding       uint8
	BitRate             uint16 // in kB/s
	FloppyRPM           uint16
	FloppyInterfaceMode uint8
	WriteProtected      uint8
	TrackListOffset     uint16 // in 512-byte blocks
	WriteAllowed        uint8
	SingleStep          uint8
	Track0S0AltEncoding uint8
	Track0S0Encoding    uint8
	Track0S1AltEncoding uint8
	Track0S1Encoding    uint8
}

// TrackHeader represents a track offset entry in the track list
type TrackHeader struct {
	Offset   uint16 // in 512-byte blocks
	TrackLen uint16 // in bytes
}

// TrackData represents the MFM bitstream data for a track
type TrackData struct {
	Side0 []byte // MFM bitstream for side 0 (bits, MSB-first)
	Side1 []byte // MFM bitstream for side 1 (bits, MSB-first)
}

// Disk represents a complete disk image as MFM bitstreams
type Disk struct {
	Header Header
	Tracks []TrackData
}

// NewDisk returns an empty disk image with a Thomson drive header.
func NewDisk(cyls, heads int, bitRate, rpm uint16) *Disk {
	return &Disk{
		Header: Header{
			NumberOfTrack:       uint8(cyls),
			NumberOfSide:        uint8(heads),
			TrackEncoding:       ENC_ISOIBM_MFM,
			BitRate:             bitRate,
			FloppyRPM:           rpm,
			FloppyInterfaceMode: IFM_GenericShugart_DD,
			WriteProtected:      0xFF,
			WriteAllowed:        0xFF,
			SingleStep:          0xFF,
			Track0S0AltEncoding: 0xFF,
			Track0S0Encoding:    ENC_ISOIBM_MFM,
			Track0S1AltEncoding: 0xFF,
			Track0S1Encoding:    ENC_ISOIBM_MFM,
		},
		Tracks: make([]TrackData, cyls),
	}
}

// IsWriteAllowed reports the write-allowed flag of the header.
func (d *Disk) IsWriteAllowed() bool {
	return d.Header.WriteAllowed != 0
}

// byteBitsInverter inverts bits in a byte (HFE stores bitstreams LSB first)
var byteBitsInverter [256]byte

func init() {
	for i := 0; i < 256; i++ {
		var inverted byte
		for j := 0; j < 8; j++ {
			if (i & (1 << j)) != 0 {
				inverted |= 1 << (7 - j)
			}
		}
		byteBitsInverter[i] = inverted
	}
}
