// ABOUTME: UDA1380 register map and bit definitions
// ABOUTME: Values follow the UDA1380 datasheet
package uda1380

// Address is the 7-bit control bus address with the ADDR pin low
const Address = 0x1A

// Registers
const (
	RegEvalClk   uint8 = 0x00
	RegI2S       uint8 = 0x01
	RegPwrCtrl   uint8 = 0x02
	RegAnaMix    uint8 = 0x03
	RegHeadAmp   uint8 = 0x04
	RegMstrVol   uint8 = 0x10
	RegMixVol    uint8 = 0x11
	RegModeBBT   uint8 = 0x12
	RegMstrMute  uint8 = 0x13
	RegMixSDO    uint8 = 0x14
	RegHeadphone uint8 = 0x18
	RegDecVol    uint8 = 0x20
	RegPGA       uint8 = 0x21
	RegADC       uint8 = 0x22
	RegAGC       uint8 = 0x23
	RegDec       uint8 = 0x28
	RegL3        uint8 = 0x7f
)

// Evaluation/clock register bits
const (
	EvalClkADCEn        uint16 = 0x0800
	EvalClkDecEn        uint16 = 0x0400
	EvalClkDACEn        uint16 = 0x0200
	EvalClkIntEn        uint16 = 0x0100
	EvalClkADCSelWSPLL  uint16 = 0x0020
	EvalClkDACSelWSPLL  uint16 = 0x0010
	EvalClkWSPLL6to12k  uint16 = 0x0000
	EvalClkWSPLL12to25k uint16 = 0x0001
	EvalClkWSPLL25to50k uint16 = 0x0002
	EvalClkWSPLL50to100 uint16 = 0x0003
)

// I2S bus format bits
const (
	I2SInputI2S    uint16 = 0x0000
	I2SInputLSB16  uint16 = 0x0100
	I2SInputMSB    uint16 = 0x0500
	I2SInputMask   uint16 = 0x0700
	I2SOutputI2S   uint16 = 0x0000
	I2SOutputMask  uint16 = 0x0007
	I2SSelSource   uint16 = 0x0040
	I2SSlaveMaster uint16 = 0x0010
)

// Power control bits
const (
	PwrPLL   uint16 = 0x8000
	PwrHP    uint16 = 0x2000
	PwrDAC   uint16 = 0x0400
	PwrBias  uint16 = 0x0100
	PwrAVC   uint16 = 0x0080
	PwrAVCOn uint16 = 0x0040
	PwrLNA   uint16 = 0x0010
	PwrPGAL  uint16 = 0x0008
	PwrADCL  uint16 = 0x0004
	PwrPGAR  uint16 = 0x0002
	PwrADCR  uint16 = 0x0001
)

// Master mute bits
const (
	MuteMaster   uint16 = 0x4000
	MuteChannel2 uint16 = 0x0800
	MuteChannel1 uint16 = 0x0008
)

// Bass boost / treble mode bits
const (
	BoostFlat uint16 = 0x0000
	BoostFull uint16 = 0xC000
	BoostMask uint16 = 0xC000
)

// Playback clocking: decimator, DAC and interpolator clocks from the WSPLL
// locked to a 25-50 kHz word select
const playbackClock = EvalClkDecEn | EvalClkDACEn | EvalClkIntEn | EvalClkDACSelWSPLL | EvalClkWSPLL25to50k

// Playback power: PLL, headphone driver, DAC and bias
const playbackPower = PwrPLL | PwrHP | PwrDAC | PwrBias
