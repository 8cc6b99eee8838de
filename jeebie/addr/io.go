package addr

// memory map boundaries
const (
	ROMStart      uint16 = 0x0000
	ROMEnd        uint16 = 0x7FFF
	VRAMStart     uint16 = 0x8000
	VRAMEnd       uint16 = 0x9FFF
	ExtRAMStart   uint16 = 0xA000
	ExtRAMEnd     uint16 = 0xBFFF
	WRAMStart     uint16 = 0xC000
	WRAMEnd       uint16 = 0xDFFF
	EchoStart     uint16 = 0xE000
	EchoEnd       uint16 = 0xFDFF
	UnusableStart uint16 = 0xFEA0
	UnusableEnd   uint16 = 0xFEFF
	IOStart       uint16 = 0xFF00
	HRAMStart     uint16 = 0xFF80
	HRAMEnd       uint16 = 0xFFFE
)

// gpu registers
const (
	// LCD Control register.
	LCDC uint16 = 0xFF40
	// LCDC Status register.
	STAT uint16 = 0xFF41
	// Scroll Y (SCY) register.
	SCY uint16 = 0xFF42
	// Scroll X (SCX) register.
	SCX uint16 = 0xFF43
	// LCDC Y-Coordinate (readonly) register.
	LY uint16 = 0xFF44
	// LY Compare register.
	LYC uint16 = 0xFF45
	// DMA Transfer and Start register.
	DMA uint16 = 0xFF46
	// BG Palette register.
	BGP uint16 = 0xFF47
	// Object Palette 0 register.
	OBP0 uint16 = 0xFF48
	// Object Palette 1 register.
	OBP1 uint16 = 0xFF49
	// Window Y Position register.
	WY uint16 = 0xFF4A
	// Window X Position register.
	WX uint16 = 0xFF4B
)

// BootOff unmaps the boot ROM overlay when written with a non-zero value.
const BootOff uint16 = 0xFF50

// Audio registers. Only the register file is emulated, see package audio.
const (
	AudioStart uint16 = 0xFF10
	AudioEnd   uint16 = 0xFF3F

	NR10 uint16 = 0xFF10
	NR11 uint16 = 0xFF11
	NR12 uint16 = 0xFF12
	NR13 uint16 = 0xFF13
	NR14 uint16 = 0xFF14
	NR21 uint16 = 0xFF16
	NR22 uint16 = 0xFF17
	NR23 uint16 = 0xFF18
	NR24 uint16 = 0xFF19
	NR30 uint16 = 0xFF1A
	NR31 uint16 = 0xFF1B
	NR32 uint16 = 0xFF1C
	NR33 uint16 = 0xFF1D
	NR34 uint16 = 0xFF1E
	NR41 uint16 = 0xFF20
	NR42 uint16 = 0xFF21
	NR43 uint16 = 0xFF22
	NR44 uint16 = 0xFF23
	NR50 uint16 = 0xFF24
	NR51 uint16 = 0xFF25
	NR52 uint16 = 0xFF26

	WaveRAMStart uint16 = 0xFF30
	WaveRAMEnd   uint16 = 0xFF3F
)

// OAM (Object Attribute Memory) - sprite data
const (
	// OAMStart is the start of OAM memory (40 sprites * 4 bytes each)
	OAMStart uint16 = 0xFE00
	// OAMEnd is the end of OAM memory
	OAMEnd uint16 = 0xFE9F
	// OAMSize is the number of bytes copied by an OAM DMA transfer.
	OAMSize = 160
)

// tile data and tile maps
const (
	// TileData0 is the start of unsigned tile data (tiles 0-255)
	TileData0 uint16 = 0x8000
	// TileData2 is the base of signed tile data (tiles -128 to 127)
	TileData2 uint16 = 0x9000

	// TileMap0 is background/window tile map 0
	TileMap0 uint16 = 0x9800
	// TileMap1 is background/window tile map 1
	TileMap1 uint16 = 0x9C00
)

// interrupts
const (
	// IF is the address for the Interrupt Flags register.
	IF uint16 = 0xFF0F
	// IE is the address for the Interrupt Enable register.
	IE uint16 = 0xFFFF
)

// joypad
const (
	// P1 is used to read the Joypad state.
	P1 uint16 = 0xFF00
)

// serial I/O
const (
	// SB (Serial transfer data, 0xFF01)
	//
	// Holds the 8-bit data to be transmitted. After completion, SB contains the
	// received byte from the peer (0xFF when no peer is connected).
	SB uint16 = 0xFF01
	// SC (Serial transfer control, 0xFF02)
	//  - Bit 7 (Start): Writing 1 starts an 8-bit transfer; hardware clears to 0 when done.
	//  - Bit 0 (Clock): 1=internal clock, 0=external clock.
	SC uint16 = 0xFF02
)

// timers
const (
	// DIV is the divider register, the upper byte of the internal system counter.
	DIV uint16 = 0xFF04
	// TIMA is the timer counter register. Generates an interrupt when it overflows.
	TIMA uint16 = 0xFF05
	// TMA is the timer modulo register. When TIMA overflows, this data will be loaded.
	TMA uint16 = 0xFF06
	// TAC is the timer control register. Used to start/stop and control the timer clock.
	TAC uint16 = 0xFF07
)
